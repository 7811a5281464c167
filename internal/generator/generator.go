// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package generator runs the real-time frame loop that turns each
// channel's waveform state into 12-bit-resolution software PWM pulses on
// the mapped GPIO registers.
package generator

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/gpio"
	"github.com/chmike/pwmgenerator/internal/waveform"
)

// BitsResolution and MaxValue set the number of sub-ticks emitted per
// frame: one gpio write pair per sub-tick, MaxValue of them per channel
// per frame.
const (
	BitsResolution = 12
	MaxValue       = 1 << BitsResolution // 4096
)

// pauseCount is the number of busy-wait increments executed between two
// consecutive sub-tick register writes. It exists only to slow the loop
// down to a frequency the GPIO hardware and downstream electronics can
// track; it is not calibrated against a wall clock, see Run's doc comment.
// A package variable, not a constant, so tests can shrink it.
var pauseCount = 9500

// spinCounter absorbs the busy-wait increments so the compiler cannot
// prove the loop has no effect and eliminate it.
var spinCounter atomic.Uint64

// Run drives the generator frame loop until ctx is canceled or a stop is
// published on slot, whichever comes first. Each frame:
//
//  1. drains slot into the live per-channel waveform state;
//  2. advances each channel's recurrence by exactly one step, producing a
//     duty sample in [0, 1] per channel;
//  3. emits MaxValue sub-ticks, each one gpio register write pair, whose
//     duty cycle approximates the sample via the same "negative-count,
//     sign-bit-as-mask" trick as the original: pwmval starts at
//     -1-round(sample*MaxValue) and is incremented every sub-tick, so it
//     stays negative (mask bit set) for exactly round(sample*MaxValue)
//     sub-ticks out of MaxValue;
//  4. updates tel with an EWMA of the measured frame frequency.
//
// The inner per-sub-tick loop makes no system calls — not even a clock
// read — so that the real-time thread's scheduling slice is never spent
// waiting on the kernel; frequency is measured once per frame instead,
// using the monotonic clock. Run assumes the caller has already pinned
// the calling goroutine's OS thread (see Pin) before calling it.
func Run(ctx context.Context, win *gpio.Window, slot *exchange.Slot, tel *Telemetry) error {
	var live [exchange.NumChannels]waveform.State

	begin := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if slot.Drain(&live) {
			return nil
		}

		var pwmval [exchange.NumChannels]int32
		for ch := range live {
			sample := live[ch].Advance()
			tel.setDuty(ch, sample)
			pwmval[ch] = -1 - int32(math.Round(sample*MaxValue))
		}

		for i := 0; i < MaxValue; i++ {
			var mask uint32
			for ch := range pwmval {
				pwmval[ch]++
				mask |= gpio.ChannelBit(ch) & uint32(pwmval[ch]>>31)
			}
			for k := 0; k < pauseCount; k++ {
				spinCounter.Add(1)
			}
			win.Set(mask)
			win.Clear(mask ^ gpio.ChannelMask)
		}

		end := time.Now()
		elapsed := end.Sub(begin).Seconds()
		begin = end
		var frequency float64
		if elapsed != 0 {
			frequency = 1 / elapsed
		}
		tel.update(frequency)
	}
}
