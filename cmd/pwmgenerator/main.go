// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// pwmgenerator drives eight software-synthesized PWM channels over the
// Raspberry Pi's GPIO header and accepts a line-oriented TCP protocol to
// configure them at runtime.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/chmike/pwmgenerator/internal/control"
	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/generator"
	"github.com/chmike/pwmgenerator/internal/gpio"
	"github.com/chmike/pwmgenerator/internal/hosttune"
	"github.com/chmike/pwmgenerator/internal/monitor"
)

// defaultPort is used when no port argument is given, or the given one
// is not usable (<=1024, i.e. a privileged port), mirroring main.c.
const defaultPort = 1234

// generatorCore is the CPU core the real-time generator goroutine is
// pinned to, matching commandHandler's startPinnedThread(3, ...).
const generatorCore = 3

// tuningError marks a failure in host tuning, which main.c treats as a
// plain fatal startup error (exit code 1), distinct from a failed
// gpio_init() or a failed serve(), both of which the original reports
// via exit(-1).
type tuningError struct{ err error }

func (e *tuningError) Error() string { return e.err.Error() }
func (e *tuningError) Unwrap() error { return e.err }

func mainImpl() error {
	verbose := flag.Bool("v", false, "print a live console readout of frequency and duty cycle")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	port := defaultPort
	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil || p <= 1024 {
			port = defaultPort
		} else {
			port = p
		}
	}

	if err := hosttune.SetRTRuntime(-1); err != nil {
		return &tuningError{fmt.Errorf("host tuning: %w", err)}
	}
	if err := hosttune.SetGovernor(generatorCore, "performance"); err != nil {
		return &tuningError{fmt.Errorf("host tuning: %w", err)}
	}

	win, err := gpio.Open()
	if err != nil {
		return fmt.Errorf("gpio init: %w", err)
	}
	if win.Fallback() {
		log.Print("non-raspberry host: writing to gpio has no effect")
	}

	var slot exchange.Slot
	var tel generator.Telemetry

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genErr := make(chan error, 1)
	go func() {
		if err := generator.Pin(generatorCore); err != nil {
			genErr <- err
			return
		}
		genErr <- generator.Run(ctx, win, &slot, &tel)
	}()

	if *verbose {
		go monitor.Run(ctx, &tel)
	}

	sup := control.NewSupervisor(&slot, &tel)
	serveErr := sup.Serve(port)

	select {
	case err := <-genErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("generator: %v", err)
		}
	default:
	}
	return serveErr
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "pwmgenerator: %s\n", err)
		var te *tuningError
		if errors.As(err, &te) {
			os.Exit(1)
		}
		os.Exit(255)
	}
}
