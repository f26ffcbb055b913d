// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"errors"
	"strings"
	"time"
)

// Exchange records one command/reply cycle. It is created by
// (*Adapter).Exchange and immutable afterwards; callers keep it only for
// logging and display.
type Exchange struct {
	Command   string
	Raw       []byte // raw inbound bytes, before text decoding
	Reply     string // decoded reply text, trimmed
	Timestamp time.Time
	Elapsed   time.Duration
	Outcome   Outcome
	Err       error
}

// HexHint reports whether enough of the reply failed to decode that a raw
// hex dump should be shown alongside the text.
func (e Exchange) HexHint() bool {
	return replacementRatio(e.Reply) > 0.2
}

// Exchange sends one command and waits for a single framed reply. The
// command is framed with the adapter's active line ending; the read runs
// until the same terminator or the per-exchange timeout. An empty read
// classifies as OutcomeTimeout. There is no automatic retry: the caller
// decides retry policy.
func (a *Adapter) Exchange(command string) Exchange {
	a.mu.Lock()
	defer a.mu.Unlock()

	ex := Exchange{Command: command, Timestamp: time.Now()}
	if a.closed {
		ex.Outcome = OutcomeIOError
		ex.Err = ErrClosed
		return ex
	}

	start := time.Now()
	if err := a.writeFramed(command); err != nil {
		ex.Elapsed = time.Since(start)
		ex.Outcome = OutcomeIOError
		ex.Err = err
		return ex
	}

	raw, err := a.readUntil(a.cfg.LineEnding.Bytes(), a.cfg.Timeout)
	ex.Elapsed = time.Since(start)
	ex.Raw = raw
	ex.Reply = strings.TrimSpace(decodeText(raw, a.cfg.Encoding))

	switch {
	case err == nil:
		ex.Outcome = OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		// An unterminated but non-empty reply still counts: some firmware
		// drops the terminator on its last line.
		if len(raw) > 0 {
			ex.Outcome = OutcomeSuccess
		} else {
			ex.Outcome = OutcomeTimeout
			ex.Err = err
		}
	default:
		ex.Outcome = OutcomeIOError
		ex.Err = err
	}
	return ex
}
