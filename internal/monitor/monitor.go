// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor renders a live one-line console readout of the
// generator's measured frequency and each channel's current duty cycle.
// It is optional enrichment, not part of the control protocol: nothing
// else in the program depends on it running.
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/mattn/go-colorable"

	"github.com/maruel/ansi256"

	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/generator"
)

// interval is how often the readout refreshes.
const interval = time.Second

// Run writes a refreshed readout to a colorable stdout every interval
// until ctx is canceled, mirroring periph-extra's screen.Dev.refresh:
// reset the line, write one colored block per channel sized by its duty
// cycle, then the frequency trailer.
func Run(ctx context.Context, tel *generator.Telemetry) {
	w := colorable.NewColorableStdout()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(w, "\n\033[0m")
			return
		case <-ticker.C:
			render(w, tel)
		}
	}
}

func render(w io.Writer, tel *generator.Telemetry) {
	var buf bytes.Buffer
	buf.WriteString("\r\033[0m")
	for ch := 0; ch < exchange.NumChannels; ch++ {
		buf.WriteString(dutyBlock(tel.Duty(ch)))
	}
	fmt.Fprintf(&buf, "\033[0m  %6.1f Hz", tel.Mean())
	buf.WriteTo(w)
}

// dutyBlock renders one channel's duty cycle as a colored block: green
// at 0% duty fading to red at 100%, the same NRGBA-to-block mapping
// screen.Dev uses for pixel data.
func dutyBlock(duty float64) string {
	if duty < 0 {
		duty = 0
	} else if duty > 1 {
		duty = 1
	}
	r := byte(duty * 255)
	g := byte((1 - duty) * 255)
	return ansi256.Default.Block(color.NRGBA{R: r, G: g, B: 0, A: 255})
}
