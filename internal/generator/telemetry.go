// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package generator

import (
	"math"
	"sync/atomic"
)

// alpha is the coefficient of the exponentially decaying weighting used to
// track the generator's actual frame frequency, taken unchanged from the
// original.
const alpha = 0.1

// Telemetry holds the generator's measured frame frequency as an
// exponentially-weighted moving mean and variance, published by the
// generator goroutine and read by the control and monitor goroutines.
//
// The original stores these as `volatile double`s, relying on the
// observation that a torn 64-bit read on the target architecture is
// vanishingly unlikely in practice. Go's race detector and memory model
// offer no such amnesty for plain field reads shared across goroutines
// without synchronization, so each value here is carried as an
// atomic.Uint64 holding math.Float64bits, giving the same lock-free,
// wait-free update/read pattern with no possibility of a torn read.
type Telemetry struct {
	mean, variance atomic.Uint64
	duty           [8]atomic.Uint64
}

// Duty returns the most recently computed duty sample for channel ch, in
// [0, 1]. Zero before the generator has produced its first frame.
func (t *Telemetry) Duty(ch int) float64 {
	return math.Float64frombits(t.duty[ch].Load())
}

func (t *Telemetry) setDuty(ch int, sample float64) {
	t.duty[ch].Store(math.Float64bits(sample))
}

// Mean returns the last published mean frequency, in Hz. Zero before the
// first frame completes.
func (t *Telemetry) Mean() float64 {
	return math.Float64frombits(t.mean.Load())
}

// Variance returns the last published frequency variance.
func (t *Telemetry) Variance() float64 {
	return math.Float64frombits(t.variance.Load())
}

// update folds one new frequency sample into the running mean and
// variance, mirroring generator.c's end-of-loop bookkeeping exactly.
func (t *Telemetry) update(frequency float64) {
	mean := t.Mean()
	if mean == 0 {
		t.mean.Store(math.Float64bits(frequency))
		t.variance.Store(0)
		return
	}
	variance := t.Variance()
	delta := frequency - mean
	incr := alpha * delta
	mean += incr
	variance = (1 - alpha) * (variance + delta*incr)
	t.mean.Store(math.Float64bits(mean))
	t.variance.Store(math.Float64bits(variance))
}
