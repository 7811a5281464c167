// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package generator

import (
	"math"
	"testing"
)

func TestTelemetryFirstSampleIsExact(t *testing.T) {
	var tel Telemetry
	tel.update(1000)
	if tel.Mean() != 1000 {
		t.Errorf("Mean() = %v, want 1000", tel.Mean())
	}
	if tel.Variance() != 0 {
		t.Errorf("Variance() = %v, want 0", tel.Variance())
	}
}

func TestTelemetryConvergesOnConstantInput(t *testing.T) {
	var tel Telemetry
	for i := 0; i < 200; i++ {
		tel.update(500)
	}
	if math.Abs(tel.Mean()-500) > 1e-9 {
		t.Errorf("Mean() = %v, want ~500", tel.Mean())
	}
	if tel.Variance() > 1e-6 {
		t.Errorf("Variance() = %v, want ~0 on constant input", tel.Variance())
	}
}

func TestTelemetryDuty(t *testing.T) {
	var tel Telemetry
	tel.setDuty(2, 0.75)
	if got := tel.Duty(2); got != 0.75 {
		t.Errorf("Duty(2) = %v, want 0.75", got)
	}
	if got := tel.Duty(0); got != 0 {
		t.Errorf("Duty(0) = %v, want 0 (untouched)", got)
	}
}
