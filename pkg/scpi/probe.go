// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import "time"

// ProbeOutcome classifies one terminator candidate.
type ProbeOutcome int

// Probe outcomes.
const (
	ProbeSilent ProbeOutcome = iota
	ProbeResponsive
)

func (o ProbeOutcome) String() string {
	if o == ProbeResponsive {
		return "responsive"
	}
	return "silent"
}

// ProbeResult is the outcome of probing one line-ending candidate.
type ProbeResult struct {
	Outcome ProbeOutcome
	Reply   string
	Elapsed time.Duration
}

// ProbeTerminators sends query once per candidate line ending (CR, LF,
// CRLF, None) with a short timeout and classifies each as responsive or
// silent. It returns all four outcomes and never picks one itself: the
// operator confirms the terminator. The adapter's original line ending and
// timeout are restored on return, whatever happens.
func ProbeTerminators(a *Adapter, query string) map[LineEnding]ProbeResult {
	if query == "" {
		query = QueryIdentify
	}

	origEnding := a.LineEnding()
	origTimeout := a.Timeout()
	defer func() {
		a.SetLineEnding(origEnding)
		a.SetTimeout(origTimeout)
	}()
	a.SetTimeout(probeTimeout)

	results := make(map[LineEnding]ProbeResult, len(ProbeCandidates))
	for _, candidate := range ProbeCandidates {
		a.SetLineEnding(candidate)
		ex := a.Exchange(query)

		r := ProbeResult{Reply: ex.Reply, Elapsed: ex.Elapsed}
		if ex.Outcome == OutcomeSuccess && ex.Reply != "" {
			r.Outcome = ProbeResponsive
		}
		results[candidate] = r
	}
	return results
}
