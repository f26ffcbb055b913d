// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Session-level errors. Transport open failures are returned directly by
// whatever opens the Conn.
var (
	// ErrTimeout means no terminated reply arrived within the deadline.
	ErrTimeout = errors.New("timeout waiting for reply")
	// ErrClosed means the adapter was closed or the transport failed earlier.
	ErrClosed = errors.New("adapter is closed")
)

// Conn is the byte transport under an Adapter. The serial port implements
// it directly; the WebSocket bridge maps SetReadTimeout onto read deadlines.
type Conn interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration) error
}

// inputResetter is implemented by transports that can drop pending inbound
// bytes. Stale bytes from a previous reply would otherwise desync framing.
type inputResetter interface {
	ResetInputBuffer() error
}

// Direction tags trace callbacks.
type Direction int

// Trace directions.
const (
	DirTX Direction = iota
	DirRX
)

func (d Direction) String() string {
	if d == DirTX {
		return "TX"
	}
	return "RX"
}

// TraceFunc receives every raw byte sequence written to or read from the
// wire, before any text decoding. Used for hex logging.
type TraceFunc func(dir Direction, raw []byte)

// Adapter owns one serial session. All exchanges serialize through its
// mutex: only one command/reply cycle is ever in flight on the wire.
type Adapter struct {
	mu     sync.Mutex
	conn   Conn
	cfg    Config
	trace  TraceFunc
	closed bool
}

// NewAdapter wraps an open transport with the given session config.
func NewAdapter(conn Conn, cfg Config) *Adapter {
	return &Adapter{conn: conn, cfg: cfg}
}

// SetTrace installs the raw-byte trace hook. Pass nil to disable.
func (a *Adapter) SetTrace(fn TraceFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trace = fn
}

// Config returns a copy of the current session config.
func (a *Adapter) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// LineEnding returns the active terminator.
func (a *Adapter) LineEnding() LineEnding {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.LineEnding
}

// SetLineEnding switches the terminator. Takes effect on the next send.
func (a *Adapter) SetLineEnding(e LineEnding) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.LineEnding = e
}

// Timeout returns the per-exchange deadline.
func (a *Adapter) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Timeout
}

// SetTimeout changes the per-exchange deadline. Takes effect on the next
// exchange; timeouts never accumulate across exchanges.
func (a *Adapter) SetTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Timeout = d
}

// Closed reports whether the adapter has been closed or marked broken.
func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Close shuts the transport down. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.conn.Close()
}

// emitTrace must be called with the mutex held.
func (a *Adapter) emitTrace(dir Direction, raw []byte) {
	if a.trace != nil && len(raw) > 0 {
		a.trace(dir, raw)
	}
}

// writeFramed encodes and writes one command with the active terminator.
// Caller holds the mutex.
func (a *Adapter) writeFramed(command string) error {
	payload := encodeText(command, a.cfg.Encoding)
	payload = append(payload, a.cfg.LineEnding.Bytes()...)

	if r, ok := a.conn.(inputResetter); ok {
		r.ResetInputBuffer()
	}

	a.emitTrace(DirTX, payload)
	if _, err := a.conn.Write(payload); err != nil {
		// A failed write means the wire is gone; the session is over.
		a.closed = true
		return fmt.Errorf("write %q: %w", command, err)
	}
	return nil
}

// readUntil reads until the terminator appears or the deadline passes.
// With a nil terminator (EndingNone) it accumulates until the deadline and
// returns whatever arrived. Caller holds the mutex.
func (a *Adapter) readUntil(term []byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var buf []byte
	chunk := make([]byte, 256)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		a.conn.SetReadTimeout(remaining)

		n, err := a.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			a.emitTrace(DirRX, chunk[:n])
			if len(term) > 0 {
				if i := bytes.Index(buf, term); i >= 0 {
					return buf[:i], nil
				}
			}
		}
		if err != nil {
			a.closed = true
			return buf, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			// Read timeout expired with nothing new.
			break
		}
	}

	if term == nil && len(buf) > 0 {
		return buf, nil
	}
	return buf, ErrTimeout
}
