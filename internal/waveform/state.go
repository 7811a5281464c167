// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveform

import "math"

// DefaultTickRate is the generator frame rate assumed for a newly converted
// spec before the generator has produced its first frequency measurement.
// Cited in the original as measured on one specific Raspberry Pi 4; kept as
// a documented default and overridable by callers that have a better
// estimate (see generator.Telemetry.Mean).
const DefaultTickRate = 10156.78

// State is the per-channel recurrence state the generator mutates once per
// frame. The sample emitted is always Y0+Y, clamped to [0, 1] at use.
//
//   - Const:    X, Y, C, S, A, Dy are all zero; the sample is the constant Y0.
//   - Sine:     A = Dy = 0. (X, Y) rotates by one complex multiplication
//     per tick using (C, S) = (cos θ, sin θ) for the per-tick angular step.
//   - Triangle: X = C = S = 0. Dy is the signed per-tick slope; Y is
//     reflected off ±A, negating Dy, each time it is crossed.
type State struct {
	Y0, X, Y, C, S, A, Dy float64
}

// ToState converts a validated spec into generator recurrence state, using
// tickRate (frames per second) to derive the per-tick constants. tickRate
// should be the generator's latest measured frame rate, or DefaultTickRate
// before any measurement exists.
func (s Spec) ToState(tickRate float64) State {
	switch s.Kind {
	case Sine:
		return sineState(s, tickRate)
	case Triangle:
		return triangleState(s, tickRate)
	default: // Const
		return State{Y0: s.Average}
	}
}

func sineState(s Spec, tickRate float64) State {
	pulsesPerPeriod := tickRate * s.Period
	angleStep := 2 * math.Pi / pulsesPerPeriod
	angle0 := 2 * math.Pi * s.Start
	return State{
		Y0: s.Average,
		C:  math.Cos(angleStep),
		S:  math.Sin(angleStep),
		X:  math.Cos(angle0) * s.Amplitude,
		Y:  math.Sin(angle0) * s.Amplitude,
	}
}

// triangleState places the ramp at the point on the triangle indicated by
// Start, with Dy's sign consistent with continuing rotation through the
// waveform: ascending 0→A over [0, 0.25), descending A→−A over
// [0.25, 0.75), ascending −A→0 over [0.75, 1), so phase 0, 0.25, 0.5, 0.75
// land exactly on the four canonical points of the triangle.
func triangleState(s Spec, tickRate float64) State {
	pulsesPerPeriod := tickRate * s.Period
	dy := s.Amplitude * 4 / pulsesPerPeriod
	st := State{Y0: s.Average, A: s.Amplitude}
	switch {
	case s.Start < 0.25:
		st.Dy = dy
		st.Y = dy * pulsesPerPeriod * s.Start
	case s.Start < 0.75:
		st.Dy = -dy
		st.Y = s.Amplitude - dy*(s.Start-0.25)*pulsesPerPeriod
	default:
		st.Dy = dy
		st.Y = -s.Amplitude + dy*(s.Start-0.75)*pulsesPerPeriod
	}
	return st
}

// Advance returns the current sample Y0+Y, clamped to [0, 1], and then
// steps the recurrence by one tick.
func (st *State) Advance() float64 {
	sample := st.Y0 + st.Y
	if st.Dy == 0 {
		// Constant or sinusoidal: one complex rotation per tick. C and S
		// are the rotation's cosine/sine; premultiplying by the amplitude
		// happens once at construction, so this step is amplitude-free.
		y, x, c, s := st.Y, st.X, st.C, st.S
		st.Y = y*c + x*s
		st.X = x*c - y*s
	} else {
		// Triangular: linear ramp reflected at ±A.
		y := st.Y + st.Dy
		if y > st.A {
			y = 2*st.A - y
			st.Dy = -st.Dy
		} else if y < -st.A {
			y = -2*st.A - y
			st.Dy = -st.Dy
		}
		st.Y = y
	}
	if sample < 0 {
		return 0
	}
	if sample > 1 {
		return 1
	}
	return sample
}
