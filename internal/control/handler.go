// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package control

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/generator"
	"github.com/chmike/pwmgenerator/internal/waveform"
)

// Version is the protocol version reported in the handshake reply,
// unchanged from the original.
const Version = "v0.1.1"

// interRequestTimeout bounds how long Handler waits for the rest of a
// request once its first bytes have arrived; waiting for the first byte
// of the next request is not bounded (the handshake itself uses a
// longer, separate timeout — see Supervisor).
const interRequestTimeout = 500 * time.Millisecond

// Handler owns the per-channel user-facing spec store and runs the
// request loop for one active session: GPRM, SPRM, FREQ, and the
// catch-all invalid/undefined-request replies.
type Handler struct {
	slot *exchange.Slot
	tel  *generator.Telemetry

	specs [exchange.NumChannels]waveform.Spec
}

// NewHandler builds a Handler over the shared exchange slot and
// telemetry the generator goroutine also uses.
func NewHandler(slot *exchange.Slot, tel *generator.Telemetry) *Handler {
	return &Handler{slot: slot, tel: tel}
}

// Serve runs the request/response loop for one session until a read
// fails (the client disconnects, a partially received request stalls past
// interRequestTimeout, or a request overflows the receive buffer), then
// requests that the generator stop, mirroring commandHandler. Invalid or
// unknown requests get an error reply and the loop goes on. Serve returns
// nothing: the caller only needs to know the session ended.
func (h *Handler) Serve(s *Session) {
	for {
		line, err := s.recvLine(interRequestTimeout)
		if err != nil {
			break
		}
		if len(line) < 5 {
			s.sendError("invalid request %q", line)
			continue
		}
		switch {
		case strings.HasPrefix(line, "GPRM"):
			h.handleGetParams(s, line[4:])
		case strings.HasPrefix(line, "SPRM "):
			h.handleSetParams(s, line[5:])
		case strings.HasPrefix(line, "FREQ"):
			h.handleFrequency(s, line[4:])
		default:
			s.sendError("undefined request %q", strings.TrimSuffix(line, "\n"))
		}
	}
	h.slot.PublishStop()
}

// handleGetParams implements GPRM: report the currently stored user spec
// for every channel, not the generator's internal recurrence state.
func (h *Handler) handleGetParams(s *Session, rest string) {
	if rest != "\n" {
		s.sendError("unexpected data after %q", "GPRM")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d", exchange.NumChannels)
	for ch, spec := range h.specs {
		fmt.Fprintf(&b, ", %d %s %g %g %g %g", ch, spec.Kind, spec.Average, spec.Amplitude, spec.Period, spec.Start)
	}
	s.sendOK("%s", b.String())
}

// handleSetParams implements SPRM: parse, validate all-or-nothing,
// convert, publish.
func (h *Handler) handleSetParams(s *Session, rest string) {
	rest = strings.TrimSuffix(rest, "\n")
	if rest == "" {
		s.sendError("expected arguments to %q", "SPRM")
		return
	}
	fields := strings.Split(rest, ",")
	count, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		s.sendError("invalid arguments")
		return
	}
	if count != len(fields)-1 {
		s.sendError("invalid arguments")
		return
	}

	type update struct {
		ch   int
		spec waveform.Spec
	}
	updates := make([]update, 0, count)
	for _, tuple := range fields[1:] {
		parts := strings.Fields(tuple)
		if len(parts) != 6 {
			s.sendError("invalid arguments")
			return
		}
		ch, err := strconv.Atoi(parts[0])
		if err != nil || ch < 0 || ch >= exchange.NumChannels {
			s.sendError("channel number out of range")
			return
		}
		kind, ok := waveform.ParseKind(parts[1])
		if !ok {
			s.sendError("channel %d assigned invalid type %s", ch, parts[1])
			return
		}
		nums := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(parts[2+i], 64)
			if err != nil {
				s.sendError("invalid arguments")
				return
			}
			nums[i] = v
		}
		spec := waveform.Spec{Kind: kind, Average: nums[0], Amplitude: nums[1], Period: nums[2], Start: nums[3]}
		updates = append(updates, update{ch: ch, spec: spec})
	}

	for _, u := range updates {
		if err := u.spec.Validate(u.ch); err != nil {
			s.sendError("%s", err.Error())
			return
		}
	}

	fresh := make(map[int]waveform.State, len(updates))
	tickRate := h.tel.Mean()
	if tickRate == 0 {
		tickRate = waveform.DefaultTickRate
	}
	for _, u := range updates {
		h.specs[u.ch] = u.spec
		fresh[u.ch] = u.spec.ToState(tickRate)
	}
	h.slot.Publish(fresh)
	s.sendOK("DONE")
}

// handleFrequency implements FREQ: wait up to four seconds in one-second
// increments for the generator to produce its first measurement.
func (h *Handler) handleFrequency(s *Session, rest string) {
	if rest != "\n" {
		s.sendError("unexpected data after %q", "FREQ")
		return
	}
	for i := 0; i < 4 && h.tel.Mean() == 0; i++ {
		time.Sleep(time.Second)
	}
	mean := h.tel.Mean()
	stdDev := math.Sqrt(h.tel.Variance())
	s.sendOK("%g %g", mean, stdDev)
}
