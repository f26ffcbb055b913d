// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"math"
	"sync"
	"testing"
	"time"
)

func scriptSetPoints(conn *fakeConn) {
	conn.script(QuerySetSHG[0]+"\r", "40.000\r")
	conn.script(QuerySetTHG[0]+"\r", "60.000\r")
}

func scriptActuals(conn *fakeConn, shg, thg string) {
	conn.script(QueryActualSHG+"\r", shg+"\r")
	conn.script(QueryActualTHG+"\r", thg+"\r")
}

func collectSamples(t *testing.T) (chan Sample, SampleSink) {
	t.Helper()
	ch := make(chan Sample, 64)
	return ch, SampleSinkFunc(func(s Sample) {
		select {
		case ch <- s:
		default:
		}
	})
}

func waitSample(t *testing.T, ch chan Sample) Sample {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample arrived")
		return Sample{}
	}
}

// ============================================================
// Monitor Tests
// ============================================================

func TestMonitor_EmitsSamplesWithDeltas(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	scriptActuals(conn, "40.118", "59.950")
	a := testAdapter(conn)

	ch, sink := collectSamples(t)
	m := NewMonitor(a, sink)
	m.SetInterval(10 * time.Millisecond)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	s := waitSample(t, ch)
	if s.SetSHG != 40.0 || s.SetTHG != 60.0 {
		t.Errorf("set-points = %v/%v, want 40/60", s.SetSHG, s.SetTHG)
	}
	if !s.ActualSHG.Valid || s.ActualSHG.Value != 40.118 {
		t.Errorf("actual SHG = %+v", s.ActualSHG)
	}
	if !s.DeltaSHG.Valid || math.Abs(s.DeltaSHG.Value-0.118) > 1e-9 {
		t.Errorf("delta SHG = %+v, want 0.118", s.DeltaSHG)
	}
	if !s.DeltaTHG.Valid || math.Abs(s.DeltaTHG.Value-(-0.05)) > 1e-9 {
		t.Errorf("delta THG = %+v, want -0.05", s.DeltaTHG)
	}
	if s.Elapsed <= 0 {
		t.Error("elapsed should be positive")
	}
}

func TestMonitor_TimedOutTickStillEmits(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	// Actual queries stay unscripted: every tick times out.
	a := testAdapter(conn)
	a.SetTimeout(5 * time.Millisecond)

	ch, sink := collectSamples(t)
	m := NewMonitor(a, sink)
	m.SetInterval(10 * time.Millisecond)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	s := waitSample(t, ch)
	if s.ActualSHG.Valid || s.ActualTHG.Valid {
		t.Errorf("timed-out readings should be invalid: %+v", s)
	}
	if s.DeltaSHG.Valid || s.DeltaTHG.Valid {
		t.Error("deltas must not be computed from invalid readings")
	}
	if s.SetSHG != 40.0 {
		t.Errorf("set-point = %v, want the value captured at start", s.SetSHG)
	}
	if !m.Running() {
		t.Error("a timed-out tick must not stop the monitor")
	}
}

func TestMonitor_SetPointFallbackSpelling(t *testing.T) {
	conn := newFakeConn()
	// Only the second SHG spelling answers.
	conn.script(QuerySetSHG[1]+"\r", "40.500\r")
	conn.script(QuerySetTHG[0]+"\r", "60.000\r")
	a := testAdapter(conn)
	a.SetTimeout(5 * time.Millisecond)

	m := NewMonitor(a)
	m.SetInterval(10 * time.Millisecond)
	if err := m.Start(); err != nil {
		t.Fatalf("Start should fall back to the second spelling: %v", err)
	}
	defer m.Stop()

	shg, _ := m.SetPoints()
	if shg != 40.5 {
		t.Errorf("SHG set-point = %v, want 40.5", shg)
	}
}

func TestMonitor_StartFailsWithoutSetPoint(t *testing.T) {
	conn := newFakeConn()
	a := testAdapter(conn)
	a.SetTimeout(5 * time.Millisecond)

	m := NewMonitor(a)
	if err := m.Start(); err == nil {
		t.Fatal("Start with unreadable set-points should fail")
	}
	if m.Running() {
		t.Error("failed start must not leave the monitor running")
	}
}

func TestMonitor_StartWhileRunningIsNoop(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	scriptActuals(conn, "40.1", "59.9")
	a := testAdapter(conn)

	m := NewMonitor(a)
	m.SetInterval(10 * time.Millisecond)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	before := conn.writeCount()
	if err := m.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	// The second Start must not re-query the set-points.
	if got := conn.writeCount(); got < before {
		t.Errorf("write count went backwards: %d -> %d", before, got)
	}
	if !m.Running() {
		t.Error("monitor should still be running")
	}
}

func TestMonitor_StopIsIdempotentAndSuppressesLateSamples(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	scriptActuals(conn, "40.1", "59.9")
	a := testAdapter(conn)

	var mu sync.Mutex
	stopped := false
	late := false
	m := NewMonitor(a, SampleSinkFunc(func(Sample) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			late = true
		}
	}))
	m.SetInterval(5 * time.Millisecond)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	m.Stop()
	mu.Lock()
	stopped = true
	mu.Unlock()
	m.Stop() // second stop is a no-op

	if m.Running() {
		t.Error("monitor still running after Stop")
	}
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if late {
		t.Error("sample emitted after Stop returned")
	}
}

func TestMonitor_FailureLimitStopsPolling(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	// Actuals never answer.
	a := testAdapter(conn)
	a.SetTimeout(2 * time.Millisecond)

	ch, sink := collectSamples(t)
	m := NewMonitor(a, sink)
	m.SetInterval(5 * time.Millisecond)
	m.SetFailureLimit(3)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for m.Running() {
		select {
		case <-deadline:
			t.Fatal("monitor did not stop after hitting the failure limit")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if len(ch) > 3 {
		t.Errorf("emitted %d samples, want at most the failure limit", len(ch))
	}
}

func TestMonitor_RestartAfterStop(t *testing.T) {
	conn := newFakeConn()
	scriptSetPoints(conn)
	scriptActuals(conn, "40.1", "59.9")
	a := testAdapter(conn)

	ch, sink := collectSamples(t)
	m := NewMonitor(a, sink)
	m.SetInterval(5 * time.Millisecond)

	if err := m.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	waitSample(t, ch)
	m.Stop()

	if err := m.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer m.Stop()
	waitSample(t, ch)
}

// ============================================================
// Numeric Extraction Tests
// ============================================================

func TestFirstFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"40.118", 40.118, true},
		{"TEMP 40.118 C", 40.118, true},
		{"-0.5", -0.5, true},
		{"+2", 2, true},
		{"no numbers here", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := firstFloat(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("firstFloat(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
