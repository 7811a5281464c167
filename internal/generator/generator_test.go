// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package generator

import (
	"context"
	"testing"
	"time"

	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/gpio"
	"github.com/chmike/pwmgenerator/internal/waveform"
)

func newTestWindow() *gpio.Window {
	return gpio.NewFallback()
}

func TestRunStopsOnPublishStop(t *testing.T) {
	oldPause := pauseCount
	pauseCount = 1
	defer func() { pauseCount = oldPause }()

	var slot exchange.Slot
	var tel Telemetry
	slot.Publish(map[int]waveform.State{0: {Y0: 0.5}})
	slot.PublishStop()

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), newTestWindow(), &slot, &tel)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after PublishStop")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	oldPause := pauseCount
	pauseCount = 1
	defer func() { pauseCount = oldPause }()

	var slot exchange.Slot
	var tel Telemetry
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, newTestWindow(), &slot, &tel)
	if err == nil {
		t.Fatal("expected context.Canceled, got nil")
	}
}

func TestRunUpdatesTelemetryAndDuty(t *testing.T) {
	oldPause := pauseCount
	pauseCount = 1
	defer func() { pauseCount = oldPause }()

	var slot exchange.Slot
	var tel Telemetry
	slot.Publish(map[int]waveform.State{0: {Y0: 0.5}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, newTestWindow(), &slot, &tel)
	}()

	// Let at least one frame run, then ask it to stop.
	time.Sleep(50 * time.Millisecond)
	slot.PublishStop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("generator did not stop")
	}

	if tel.Mean() <= 0 {
		t.Errorf("Mean() = %v, want > 0 after at least one frame", tel.Mean())
	}
	if got := tel.Duty(0); got != 0.5 {
		t.Errorf("Duty(0) = %v, want 0.5", got)
	}
}
