// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package exchange

import (
	"sync"
	"testing"

	"github.com/chmike/pwmgenerator/internal/waveform"
)

func TestPublishThenDrain(t *testing.T) {
	var s Slot
	var live [NumChannels]waveform.State

	if stop := s.Drain(&live); stop {
		t.Fatal("fresh slot reported stop")
	}

	s.Publish(map[int]waveform.State{
		0: {Y0: 0.25},
		3: {Y0: 0.75},
	})
	if stop := s.Drain(&live); stop {
		t.Fatal("unexpected stop")
	}
	if live[0].Y0 != 0.25 {
		t.Errorf("live[0].Y0 = %v, want 0.25", live[0].Y0)
	}
	if live[3].Y0 != 0.75 {
		t.Errorf("live[3].Y0 = %v, want 0.75", live[3].Y0)
	}
	// untouched channels keep their previous value
	if live[1].Y0 != 0 {
		t.Errorf("live[1].Y0 = %v, want 0 (untouched)", live[1].Y0)
	}
}

func TestDrainIsIdempotentBetweenPublishes(t *testing.T) {
	var s Slot
	var live [NumChannels]waveform.State
	s.Publish(map[int]waveform.State{0: {Y0: 0.5}})
	s.Drain(&live)
	live[0].Y0 = 0.1 // simulate the generator mutating its own copy
	s.Drain(&live)
	if live[0].Y0 != 0.1 {
		t.Errorf("second Drain overwrote generator-owned state: got %v", live[0].Y0)
	}
}

func TestPublishStop(t *testing.T) {
	var s Slot
	var live [NumChannels]waveform.State
	s.PublishStop()
	if stop := s.Drain(&live); !stop {
		t.Fatal("expected stop")
	}
	// flags are cleared after a successful drain
	if stop := s.Drain(&live); stop {
		t.Fatal("stop flag should not persist across drains")
	}
}

func TestConcurrentPublishAndDrainDontRace(t *testing.T) {
	var s Slot
	var live [NumChannels]waveform.State
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Publish(map[int]waveform.State{i % NumChannels: {Y0: float64(i)}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Drain(&live)
		}
	}()
	wg.Wait()
}
