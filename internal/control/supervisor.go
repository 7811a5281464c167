// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package control

import (
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/chmike/pwmgenerator/internal/exchange"
	"github.com/chmike/pwmgenerator/internal/generator"
)

// handshakeTimeout bounds how long a newly accepted connection has to
// send its PWM0 line before being dropped.
const handshakeTimeout = 10 * time.Second

// Supervisor accepts exactly one active client connection at a time,
// performs its PWM0 handshake, and hands it off to a Handler, mirroring
// server.c's serve() and the isConnected token.
type Supervisor struct {
	slot *exchange.Slot
	tel  *generator.Telemetry

	connected  atomic.Bool
	activeAddr atomic.Value // string: remote address of the active session
}

// NewSupervisor builds a Supervisor driving the given exchange slot and
// telemetry, shared with the generator goroutine.
func NewSupervisor(slot *exchange.Slot, tel *generator.Telemetry) *Supervisor {
	return &Supervisor{slot: slot, tel: tel}
}

// Serve listens on port and blocks forever accepting connections. It
// returns only if it fails to start listening.
func (sup *Supervisor) Serve(port int) error {
	if port <= 0 {
		return fmt.Errorf("control: invalid port %d", port)
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("control: listen: %w", err)
	}
	defer ln.Close()
	log.Printf("server: listening on port %d", port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("server: accept: %v", err)
			continue
		}
		go sup.handleConn(conn)
	}
}

func (sup *Supervisor) handleConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	addr := conn.RemoteAddr().String()
	s := NewSession(conn, addr)

	line, err := sup.handshakeLine(s)
	if err != nil {
		log.Printf("server: reject connection from %s: %v", addr, err)
		s.Close()
		return
	}
	if line != "PWM0\n" {
		log.Printf("server: expected \"PWM0\\n\", reject connection from %s", addr)
		s.Close()
		return
	}

	if !sup.connected.CompareAndSwap(false, true) {
		activeAddr, _ := sup.activeAddr.Load().(string)
		log.Printf("server: busy with %s, reject connection from %s", activeAddr, addr)
		s.sendError("busy with %s", activeAddr)
		s.Close()
		return
	}
	sup.activeAddr.Store(addr)
	defer sup.connected.Store(false)

	if err := s.sendOK("HELO %s %dbits", Version, generator.BitsResolution); err != nil {
		log.Printf("server: failed replying to PWM0 from %s: %v", addr, err)
		s.Close()
		return
	}

	log.Printf("server: accept connection from %s", addr)
	handler := NewHandler(sup.slot, sup.tel)
	handler.Serve(s)
	log.Printf("server: stop accepting commands from %s", addr)
	s.Close()
}

func (sup *Supervisor) handshakeLine(s *Session) (string, error) {
	s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	return s.recvLine(handshakeTimeout)
}
