// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReferenceSet maps field names to expected value tokens, loaded from a
// previously saved parameter file.
type ReferenceSet map[string]string

// LoadReferenceSet parses key/value lines. Within a line, segments split on
// ';' or '|'; within a segment the first of '=', ':' or ',' separates key
// from value. Lines without a separator are skipped.
func LoadReferenceSet(r io.Reader) (ReferenceSet, error) {
	ref := make(ReferenceSet)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, segment := range strings.FieldsFunc(line, func(c rune) bool { return c == ';' || c == '|' }) {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			for _, sep := range []string{"=", ":", ","} {
				if k, v, found := strings.Cut(segment, sep); found {
					k = strings.TrimSpace(k)
					if k != "" {
						ref[k] = strings.TrimSpace(v)
					}
					break
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	return ref, nil
}

// MatchStatus is the per-field result of a reference comparison.
type MatchStatus int

// Comparison results. The two missing states record which side lacked the
// field, so the report stays symmetric.
const (
	StatusMatch MatchStatus = iota
	StatusMismatch
	StatusMissingCurrent
	StatusMissingReference
)

func (s MatchStatus) String() string {
	switch s {
	case StatusMatch:
		return "match"
	case StatusMismatch:
		return "mismatch"
	case StatusMissingCurrent:
		return "missing in current"
	case StatusMissingReference:
		return "missing in reference"
	}
	return "unknown"
}

// Compare diffs decoded current values against a reference table. Values
// compare as exact strings after whitespace trimming; numeric formatting
// differences ("5.0" vs "5") count as mismatches. That is the documented
// behavior of the reference workflow, not an oversight.
func Compare(current *DecodedResponse, ref ReferenceSet) map[string]MatchStatus {
	result := make(map[string]MatchStatus)

	seen := make(map[string]bool, len(current.Fields))
	for _, f := range current.Fields {
		seen[f.Name] = true
		expected, inRef := ref[f.Name]
		switch {
		case f.Missing:
			if inRef {
				result[f.Name] = StatusMissingCurrent
			}
		case !inRef:
			result[f.Name] = StatusMissingReference
		case strings.TrimSpace(f.Value) == strings.TrimSpace(expected):
			result[f.Name] = StatusMatch
		default:
			result[f.Name] = StatusMismatch
		}
	}

	for name := range ref {
		if !seen[name] {
			result[name] = StatusMissingCurrent
		}
	}
	return result
}
