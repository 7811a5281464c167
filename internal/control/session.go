// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package control implements the line-oriented TCP protocol clients use
// to configure and query the generator: the PWM0 handshake, GPRM/SPRM/FREQ
// requests, and the single-active-session rule.
package control

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"time"
)

// bufferSize is the fixed size of both the receive and send buffers,
// taken unchanged from the original's BUFFER_SIZE.
const bufferSize = 1024

// ErrBufferFull is returned by recvLine when a line would not fit in the
// fixed-size receive buffer without ever seeing a newline.
var ErrBufferFull = errors.New("control: request line exceeds buffer size")

// Session wraps one client connection: the net.Conn plus the fixed-size
// receive buffer and cursors the original's conn_t carries, so a partial
// line left over after one recvLine call is preserved for the next.
type Session struct {
	conn    net.Conn
	addr    string
	recvBuf [bufferSize]byte
	beg, end int
}

// NewSession wraps an accepted connection. addr is the pre-formatted
// remote address string attached to every log line and busy reply.
func NewSession(conn net.Conn, addr string) *Session {
	return &Session{conn: conn, addr: addr}
}

// Addr returns the session's remote address string, e.g. "1.2.3.4:1234".
func (s *Session) Addr() string {
	return s.addr
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// recvLine returns the next '\n'-terminated line (newline included, CR
// not stripped) from the connection, reusing any bytes already buffered
// from a previous short read, mirroring server.c's recvReq.
//
// The very first read of a call is made under whatever deadline the
// caller has already set on the connection (or none): recvReq only
// starts timing out once a line has begun arriving but hasn't finished,
// so that a session sits blocked indefinitely between requests. Once a
// read has partially filled a line, every further read is bounded by
// continuation, so a client that starts a line and then stalls cannot
// wedge the handler forever.
func (s *Session) recvLine(continuation time.Duration) (string, error) {
	if s.beg != 0 {
		copy(s.recvBuf[:], s.recvBuf[s.beg:s.end])
		s.end -= s.beg
		s.beg = 0
	}
	if i := bytes.IndexByte(s.recvBuf[s.beg:s.end], '\n'); i >= 0 {
		s.beg += i + 1
		return string(s.recvBuf[:s.beg]), nil
	}

	for {
		if s.end == bufferSize {
			return "", ErrBufferFull
		}
		n, err := s.conn.Read(s.recvBuf[s.end:])
		if n <= 0 {
			if err != nil {
				return "", err
			}
			return "", fmt.Errorf("control: connection closed by %s", s.addr)
		}
		s.conn.SetReadDeadline(time.Now().Add(continuation))
		s.end += n
		if i := bytes.IndexByte(s.recvBuf[s.beg:s.end], '\n'); i >= 0 {
			s.beg += i + 1
			s.conn.SetReadDeadline(time.Time{})
			return string(s.recvBuf[:s.beg]), nil
		}
	}
}

// sendLine writes prefix+body to the connection, appending a trailing
// newline if body doesn't already end with one, mirroring sendRspBuf's
// append-if-missing behavior.
func (s *Session) sendLine(prefix byte, body string) error {
	if len(body)+2 > bufferSize {
		return fmt.Errorf("control: response exceeds buffer size")
	}
	buf := make([]byte, 0, len(body)+2)
	buf = append(buf, prefix)
	buf = append(buf, body...)
	if len(buf) == 0 || buf[len(buf)-1] != '\n' {
		buf = append(buf, '\n')
	}
	_, err := s.conn.Write(buf)
	return err
}

func (s *Session) sendOK(format string, args ...any) error {
	return s.sendLine('>', fmt.Sprintf(format, args...))
}

func (s *Session) sendError(format string, args ...any) error {
	return s.sendLine('!', fmt.Sprintf(format, args...))
}
