// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveform

import (
	"math"
	"testing"
)

func TestConstAdvanceIsFlat(t *testing.T) {
	st := Spec{Kind: Const, Average: 0.37}.ToState(DefaultTickRate)
	for i := 0; i < 1000; i++ {
		if got := st.Advance(); got != 0.37 {
			t.Fatalf("tick %d: got %v, want 0.37", i, got)
		}
	}
}

func TestSineRotationIsStable(t *testing.T) {
	s := Spec{Kind: Sine, Average: 0.5, Amplitude: 0.3, Period: 0.01, Start: 0}
	st := s.ToState(DefaultTickRate)
	for i := 0; i < 1000000; i++ {
		st.Advance()
	}
	mag := math.Hypot(st.X, st.Y)
	if math.Abs(mag-s.Amplitude) > 1e-6 {
		t.Fatalf("rotation magnitude drifted: got %v, want %v", mag, s.Amplitude)
	}
}

func TestTriangleBounded(t *testing.T) {
	s := Spec{Kind: Triangle, Average: 0.5, Amplitude: 0.25, Period: 0.001, Start: 0.5}
	st := s.ToState(DefaultTickRate)
	for i := 0; i < 200000; i++ {
		st.Advance()
		if math.Abs(st.Y) > s.Amplitude+1e-9 {
			t.Fatalf("tick %d: |y|=%v exceeds amplitude %v", i, st.Y, s.Amplitude)
		}
	}
}

func TestTriangleCanonicalPoints(t *testing.T) {
	tickRate := 1000.0
	period := 1.0
	amp := 0.4
	for _, tc := range []struct {
		start float64
		want  float64
	}{
		{0, 0},
		{0.25, amp},
		{0.5, 0},
		{0.75, -amp},
	} {
		s := Spec{Kind: Triangle, Average: 0.5, Amplitude: amp, Period: period, Start: tc.start}
		st := s.ToState(tickRate)
		if math.Abs(st.Y-tc.want) > 1e-9 {
			t.Errorf("start=%v: y=%v, want %v", tc.start, st.Y, tc.want)
		}
	}
}

func TestTriangleHalfPeriodSignFlip(t *testing.T) {
	tickRate := 10000.0
	s := Spec{Kind: Triangle, Average: 0.5, Amplitude: 0.2, Period: 0.1, Start: 0}
	st := s.ToState(tickRate)
	pulsesPerPeriod := tickRate * s.Period
	lastSign := st.Dy > 0
	flipAt := []int{}
	ticks := int(pulsesPerPeriod*2) + 5
	for i := 0; i < ticks; i++ {
		st.Advance()
		sign := st.Dy > 0
		if sign != lastSign {
			flipAt = append(flipAt, i)
			lastSign = sign
		}
	}
	if len(flipAt) < 2 {
		t.Fatalf("expected at least 2 sign flips, got %d", len(flipAt))
	}
	half := pulsesPerPeriod / 2
	gap := float64(flipAt[1] - flipAt[0])
	if math.Abs(gap-half) > 1 {
		t.Errorf("gap between sign flips = %v, want ~%v", gap, half)
	}
}

func TestAdvanceClamps(t *testing.T) {
	st := State{Y0: 2} // out-of-range offset, never produced by ToState but exercises the clamp
	if got := st.Advance(); got != 1 {
		t.Errorf("got %v, want clamped 1", got)
	}
	st = State{Y0: -2}
	if got := st.Advance(); got != 0 {
		t.Errorf("got %v, want clamped 0", got)
	}
}
