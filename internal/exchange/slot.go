// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package exchange hands waveform parameters from the control goroutine to
// the real-time generator loop without ever blocking the generator behind
// a mutex or a channel receive.
package exchange

import (
	"sync/atomic"

	"github.com/chmike/pwmgenerator/internal/waveform"
)

// NumChannels mirrors gpio.NumChannels; repeated here so this package has
// no dependency on the register layer.
const NumChannels = 8

// Slot is a single-writer, single-reader mailbox for per-channel waveform
// state, guarded by a spinlock rather than a mutex: the original's
// newParamsLock is a C11 atomic_flag test-and-set, held only long enough
// to copy a handful of structs, which is exactly the shape Go's
// sync/atomic.Bool gives as CompareAndSwap(false, true).
type Slot struct {
	locked atomic.Bool
	states [NumChannels]waveform.State
	flags  uint32 // bit ch set => states[ch] is fresh; bit NumChannels set => stop requested
}

func (s *Slot) lock() {
	for !s.locked.CompareAndSwap(false, true) {
	}
}

func (s *Slot) unlock() {
	s.locked.Store(false)
}

// Publish stores fresh state for each channel named in states, to be
// picked up by the next Drain call the generator makes.
func (s *Slot) Publish(states map[int]waveform.State) {
	s.lock()
	for ch, st := range states {
		s.states[ch] = st
		s.flags |= 1 << uint(ch)
	}
	s.unlock()
}

// PublishStop requests that the generator loop return at its next frame
// boundary.
func (s *Slot) PublishStop() {
	s.lock()
	s.flags |= 1 << NumChannels
	s.unlock()
}

// Drain copies any fresh per-channel state published since the last call
// into live, and reports whether a stop was requested. It is called once
// per generator frame and never blocks longer than it takes another
// caller to finish a Publish/PublishStop.
func (s *Slot) Drain(live *[NumChannels]waveform.State) (stop bool) {
	s.lock()
	flags := s.flags
	if flags != 0 {
		for ch := 0; ch < NumChannels; ch++ {
			if flags&(1<<uint(ch)) != 0 {
				live[ch] = s.states[ch]
			}
		}
		stop = flags&(1<<NumChannels) != 0
		s.flags = 0
	}
	s.unlock()
	return stop
}
