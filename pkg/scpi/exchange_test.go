// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeConn scripts a device: each exact wire payload (command plus
// terminator) maps to the raw bytes the device answers with. Unscripted
// writes leave the read side silent, which surfaces as a read timeout.
type fakeConn struct {
	mu      sync.Mutex
	timeout time.Duration
	replies map[string][]byte
	writes  []string
	pending []byte
	resets  int
	closed  bool

	writeErr error
	readErr  error
}

func newFakeConn() *fakeConn {
	return &fakeConn{replies: make(map[string][]byte)}
}

func (c *fakeConn) script(payload string, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[payload] = []byte(reply)
}

func (c *fakeConn) SetReadTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
	return nil
}

func (c *fakeConn) ResetInputBuffer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	c.pending = nil
	return nil
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, string(p))
	if reply, ok := c.replies[string(p)]; ok {
		c.pending = append(c.pending, reply...)
	}
	return len(p), nil
}

// Read hands out pending bytes, or sleeps through the configured read
// timeout and returns (0, nil) the way the serial driver reports an
// expired deadline.
func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return 0, err
	}
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		c.mu.Unlock()
		return n, nil
	}
	d := c.timeout
	c.mu.Unlock()
	time.Sleep(d)
	return 0, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func testAdapter(conn Conn) *Adapter {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond
	return NewAdapter(conn, cfg)
}

// ============================================================
// Exchange Tests
// ============================================================

func TestExchange_Success(t *testing.T) {
	conn := newFakeConn()
	conn.script("*IDN?\r", "MatrixNX,1.2.3\r")
	a := testAdapter(conn)

	ex := a.Exchange("*IDN?")
	if ex.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v (err %v), want success", ex.Outcome, ex.Err)
	}
	if ex.Reply != "MatrixNX,1.2.3" {
		t.Errorf("reply = %q, want terminator stripped", ex.Reply)
	}
	if ex.Elapsed <= 0 {
		t.Error("elapsed should be positive")
	}
}

func TestExchange_Timeout(t *testing.T) {
	conn := newFakeConn()
	a := testAdapter(conn)

	ex := a.Exchange("SYSTem:BOGUS?")
	if ex.Outcome != OutcomeTimeout {
		t.Fatalf("outcome = %v, want timeout", ex.Outcome)
	}
	if !errors.Is(ex.Err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", ex.Err)
	}
	if ex.Reply != "" {
		t.Errorf("timed-out exchange carries reply %q", ex.Reply)
	}
	if a.Closed() {
		t.Error("a timeout must not close the adapter")
	}
}

func TestExchange_UnterminatedReplyCountsAsSuccess(t *testing.T) {
	conn := newFakeConn()
	conn.script("ERR?\r", "0, No Error") // terminator never arrives
	a := testAdapter(conn)

	ex := a.Exchange("ERR?")
	if ex.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success for non-empty unterminated reply", ex.Outcome)
	}
	if ex.Reply != "0, No Error" {
		t.Errorf("reply = %q", ex.Reply)
	}
}

func TestExchange_NoneEndingReadsUntilDeadline(t *testing.T) {
	conn := newFakeConn()
	conn.script("ALL?", "1,2,3\r\nrest")
	a := testAdapter(conn)
	a.SetLineEnding(EndingNone)

	ex := a.Exchange("ALL?")
	if ex.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", ex.Outcome)
	}
	if !strings.Contains(ex.Reply, "rest") {
		t.Errorf("read-until-timeout should keep everything, got %q", ex.Reply)
	}
	if got := conn.writes[0]; got != "ALL?" {
		t.Errorf("None mode must not append a terminator, wrote %q", got)
	}
}

func TestExchange_WriteErrorClosesSession(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("port vanished")
	a := testAdapter(conn)

	ex := a.Exchange("*IDN?")
	if ex.Outcome != OutcomeIOError {
		t.Fatalf("outcome = %v, want io-error", ex.Outcome)
	}
	if !a.Closed() {
		t.Error("write failure should mark the adapter closed")
	}

	again := a.Exchange("*IDN?")
	if !errors.Is(again.Err, ErrClosed) {
		t.Errorf("exchange on closed adapter: err = %v, want ErrClosed", again.Err)
	}
}

func TestExchange_ReadErrorClosesSession(t *testing.T) {
	conn := newFakeConn()
	conn.readErr = errors.New("device unplugged")
	a := testAdapter(conn)

	ex := a.Exchange("*IDN?")
	if ex.Outcome != OutcomeIOError {
		t.Fatalf("outcome = %v, want io-error", ex.Outcome)
	}
	if !a.Closed() {
		t.Error("read failure should mark the adapter closed")
	}
}

func TestExchange_DrainsStaleInput(t *testing.T) {
	conn := newFakeConn()
	conn.pending = []byte("stale leftovers\r")
	conn.script("*IDN?\r", "fresh\r")
	a := testAdapter(conn)

	ex := a.Exchange("*IDN?")
	if ex.Reply != "fresh" {
		t.Errorf("reply = %q, stale input should have been dropped", ex.Reply)
	}
	if conn.resets == 0 {
		t.Error("expected an input-buffer reset before the write")
	}
}

func TestExchange_TraceSeesRawBytes(t *testing.T) {
	conn := newFakeConn()
	conn.script("*IDN?\r", "ok\r")
	a := testAdapter(conn)

	var mu sync.Mutex
	var tx, rx []byte
	a.SetTrace(func(dir Direction, raw []byte) {
		mu.Lock()
		defer mu.Unlock()
		switch dir {
		case DirTX:
			tx = append(tx, raw...)
		case DirRX:
			rx = append(rx, raw...)
		}
	})

	a.Exchange("*IDN?")
	mu.Lock()
	defer mu.Unlock()
	if string(tx) != "*IDN?\r" {
		t.Errorf("TX trace = %q, want framed payload with terminator", tx)
	}
	if string(rx) != "ok\r" {
		t.Errorf("RX trace = %q, want raw bytes including terminator", rx)
	}
}

func TestAdapter_CloseIdempotent(t *testing.T) {
	conn := newFakeConn()
	a := testAdapter(conn)

	if err := a.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !conn.closed {
		t.Error("transport not closed")
	}
}

// ============================================================
// Terminator Probe Tests
// ============================================================

func TestProbeTerminators_FindsResponsiveEnding(t *testing.T) {
	conn := newFakeConn()
	conn.script("*IDN?\n", "MatrixNX\n") // device speaks LF
	a := testAdapter(conn)

	results := ProbeTerminators(a, "")
	if len(results) != len(ProbeCandidates) {
		t.Fatalf("got %d results, want %d", len(results), len(ProbeCandidates))
	}
	if results[EndingLF].Outcome != ProbeResponsive {
		t.Errorf("LF = %v, want responsive", results[EndingLF].Outcome)
	}
	if results[EndingLF].Reply != "MatrixNX" {
		t.Errorf("LF reply = %q", results[EndingLF].Reply)
	}
	for _, e := range []LineEnding{EndingCR, EndingCRLF} {
		if results[e].Outcome != ProbeSilent {
			t.Errorf("%s = %v, want silent", e, results[e].Outcome)
		}
	}
}

func TestProbeTerminators_RestoresSessionState(t *testing.T) {
	conn := newFakeConn()
	a := testAdapter(conn)
	a.SetLineEnding(EndingCRLF)
	origTimeout := a.Timeout()

	ProbeTerminators(a, "*IDN?")

	if got := a.LineEnding(); got != EndingCRLF {
		t.Errorf("line ending = %v after probe, want CRLF restored", got)
	}
	if got := a.Timeout(); got != origTimeout {
		t.Errorf("timeout = %v after probe, want %v restored", got, origTimeout)
	}
}

func TestProbeTerminators_AllSilent(t *testing.T) {
	conn := newFakeConn()
	a := testAdapter(conn)

	results := ProbeTerminators(a, "*IDN?")
	for _, candidate := range ProbeCandidates {
		if results[candidate].Outcome != ProbeSilent {
			t.Errorf("%s = %v, want silent", candidate, results[candidate].Outcome)
		}
	}
}

// ============================================================
// Hex Hint Tests
// ============================================================

func TestExchange_HexHint(t *testing.T) {
	clean := Exchange{Reply: "24.981,25.002"}
	if clean.HexHint() {
		t.Error("clean reply should not hint at hex")
	}
	garbled := Exchange{Reply: strings.Repeat(string(rune(0xFFFD)), 4) + "ok"}
	if !garbled.HexHint() {
		t.Error("mostly-undecodable reply should hint at hex")
	}
}
