// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Reading is a measurement that may be absent: a timed-out query produces a
// sample whose readings carry Valid=false instead of dropping the sample.
type Reading struct {
	Value float64
	Valid bool
}

// Sample is one tick of the temperature monitor: actual and set-point per
// stage plus the actual-minus-set deviation. Immutable once emitted.
type Sample struct {
	Timestamp time.Time
	Elapsed   time.Duration

	SetSHG float64
	SetTHG float64

	ActualSHG Reading
	ActualTHG Reading
	DeltaSHG  Reading
	DeltaTHG  Reading
}

// SampleSink receives monitor samples in arrival order. Implementations are
// the CSV logger, the live plot and the structured log.
type SampleSink interface {
	Consume(Sample)
}

// SampleSinkFunc adapts a function to SampleSink.
type SampleSinkFunc func(Sample)

// Consume calls f.
func (f SampleSinkFunc) Consume(s Sample) { f(s) }

// Monitor polls the SHG/THG temperature stages on a fixed cadence and feeds
// samples to its sinks. At most one monitor session runs per adapter;
// Start while running is a no-op that keeps the existing session.
//
// All queries go through the adapter's Exchange, so monitor ticks and
// manual operator sends serialize on the same mutex and never interleave
// on the wire.
type Monitor struct {
	adapter  *Adapter
	interval time.Duration
	sinks    []SampleSink

	// maxFailures stops the monitor after that many consecutive ticks in
	// which both actual queries timed out. Zero means poll until Stop.
	maxFailures int

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	setSHG float64
	setTHG float64
}

// NewMonitor creates a monitor on the adapter with the default 100 ms
// cadence, emitting to the given sinks.
func NewMonitor(a *Adapter, sinks ...SampleSink) *Monitor {
	return &Monitor{
		adapter:  a,
		interval: DefaultInterval,
		sinks:    sinks,
	}
}

// SetInterval changes the polling cadence. Takes effect on the next Start.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// SetFailureLimit sets the consecutive-failure threshold (0 disables it).
func (m *Monitor) SetFailureLimit(n int) {
	m.maxFailures = n
}

// Running reports whether a monitor session is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SetPoints returns the set-point values captured at Start.
func (m *Monitor) SetPoints() (shg, thg float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setSHG, m.setTHG
}

// Start reads both set-points once, then begins the polling loop. Starting
// an already-running monitor reuses the existing session and returns nil.
// A set-point that cannot be read fails the start: without it the deltas
// are meaningless.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	setSHG, err := m.querySetPoint(QuerySetSHG)
	if err != nil {
		return fmt.Errorf("read SHG set-point: %w", err)
	}
	setTHG, err := m.querySetPoint(QuerySetTHG)
	if err != nil {
		return fmt.Errorf("read THG set-point: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.setSHG = setSHG
	m.setTHG = setTHG
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true
	go m.loop(m.stop, m.done, time.Now())
	return nil
}

// Stop ends the session and waits for the loop to exit. Idempotent. A stop
// that lands before a tick's first send suppresses that tick's sample.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()
	<-done
}

func (m *Monitor) loop(stop <-chan struct{}, done chan<- struct{}, start time.Time) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// A stop may have raced the tick: re-check before touching the wire.
		select {
		case <-stop:
			return
		default:
		}

		actualSHG := m.queryActual(QueryActualSHG)
		actualTHG := m.queryActual(QueryActualTHG)
		now := time.Now()

		sample := Sample{
			Timestamp: now,
			Elapsed:   now.Sub(start),
			SetSHG:    m.setSHG,
			SetTHG:    m.setTHG,
			ActualSHG: actualSHG,
			ActualTHG: actualTHG,
		}
		if actualSHG.Valid {
			sample.DeltaSHG = Reading{Value: actualSHG.Value - m.setSHG, Valid: true}
		}
		if actualTHG.Valid {
			sample.DeltaTHG = Reading{Value: actualTHG.Value - m.setTHG, Valid: true}
		}

		for _, sink := range m.sinks {
			sink.Consume(sample)
		}

		if !actualSHG.Valid && !actualTHG.Valid {
			failures++
			if m.maxFailures > 0 && failures >= m.maxFailures {
				m.mu.Lock()
				if m.running {
					m.running = false
					close(m.stop)
				}
				m.mu.Unlock()
				return
			}
		} else {
			failures = 0
		}
	}
}

// querySetPoint tries each command spelling until one yields a numeric
// reply.
func (m *Monitor) querySetPoint(commands []string) (float64, error) {
	var lastReply string
	for _, cmd := range commands {
		ex := m.adapter.Exchange(cmd)
		if ex.Outcome != OutcomeSuccess {
			lastReply = ex.Outcome.String()
			continue
		}
		if v, ok := firstFloat(ex.Reply); ok {
			return v, nil
		}
		lastReply = ex.Reply
	}
	return 0, fmt.Errorf("no numeric reply (last: %q)", lastReply)
}

// queryActual runs one actual-value query; a timeout or unparsable reply
// yields an invalid Reading, never an error.
func (m *Monitor) queryActual(command string) Reading {
	ex := m.adapter.Exchange(command)
	if ex.Outcome != OutcomeSuccess {
		return Reading{}
	}
	if v, ok := firstFloat(ex.Reply); ok {
		return Reading{Value: v, Valid: true}
	}
	return Reading{}
}

var floatPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// firstFloat extracts the first decimal number from a reply.
func firstFloat(s string) (float64, bool) {
	match := floatPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
