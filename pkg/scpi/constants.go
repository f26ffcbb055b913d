// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

// Package scpi implements the serial-session and structured-response layer
// for SCPI instruments that answer multi-value queries (ALL?, SERVice:XALL?)
// with fixed-order comma-separated replies.
//
// The package owns framing (line-ending negotiation, terminator probing,
// per-exchange timeouts) and positional decoding of replies against named
// field orderings. Transport, logging and display are left to the caller.
package scpi

import "time"

// LineEnding identifies the terminator appended to outbound commands and
// expected at the end of inbound replies.
type LineEnding string

// Supported line endings. EndingNone switches reads into
// read-until-timeout mode: no terminator is appended or awaited.
const (
	EndingCR   LineEnding = "CR"
	EndingLF   LineEnding = "LF"
	EndingCRLF LineEnding = "CRLF"
	EndingNone LineEnding = "None"
)

// ProbeCandidates is the order in which ProbeTerminators tries line endings.
var ProbeCandidates = []LineEnding{EndingCR, EndingLF, EndingCRLF, EndingNone}

// Bytes returns the wire bytes of the line ending (nil for EndingNone).
func (e LineEnding) Bytes() []byte {
	switch e {
	case EndingCR:
		return []byte{'\r'}
	case EndingLF:
		return []byte{'\n'}
	case EndingCRLF:
		return []byte{'\r', '\n'}
	}
	return nil
}

// ResponseKind keys a reply to the field ordering used to decode it.
type ResponseKind string

// Built-in response kinds, matching the device's documented query layout.
const (
	KindAll              ResponseKind = "ALL"
	KindXallTemperatures ResponseKind = "XALL:TEMPeratures"
	KindXallStepper      ResponseKind = "XALL:STEPper"
	KindXallOthers       ResponseKind = "XALL:OTHers"
)

// Queries issued by the probe and the temperature monitor.
const (
	QueryIdentify  = "*IDN?"
	QueryActualSHG = "SOURce:TEMPerature:ACTual? TEMP_STAGE_SHG"
	QueryActualTHG = "SOURce:TEMPerature:ACTual? TEMP_STAGE_THG"
)

// Set-point query spellings. Some firmware revisions want the stage name as
// a second word, so the SHG query carries a fallback.
var (
	QuerySetSHG = []string{
		"SOURce:TEMPerature:LEVel:SET? TEMP_STAGE_SHG",
		"SOURce:TEMPerature:LEVel:SET? TEMP_STAGE SHG",
	}
	QuerySetTHG = []string{
		"SOURce:TEMPerature:LEVel:SET? TEMP_STAGE_THG",
	}
)

// Outcome classifies a completed Exchange.
type Outcome int

// Exchange outcomes.
const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeIOError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeIOError:
		return "io-error"
	}
	return "unknown"
}

// Defaults for adapter and monitor timing.
const (
	DefaultTimeout  = 1 * time.Second
	DefaultInterval = 100 * time.Millisecond
	probeTimeout    = 500 * time.Millisecond
)
