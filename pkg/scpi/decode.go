// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"strconv"
	"strings"
)

// Field is one named position of a decoded reply. Missing marks a field the
// reply supplied no token for.
type Field struct {
	Name    string
	Value   string
	Missing bool
}

// DecodedResponse is a reply zipped against a field ordering. Token i maps
// to field i. A token-count mismatch never fails: short replies leave
// trailing fields Missing, long replies keep the extra tokens in Overflow
// so nothing is silently dropped.
type DecodedResponse struct {
	Kind       ResponseKind
	Structured bool // false when no ordering was registered for Kind
	Fields     []Field
	Overflow   []string
}

// Complete reports a decode with no missing fields and no overflow.
func (r *DecodedResponse) Complete() bool {
	if len(r.Overflow) > 0 {
		return false
	}
	for _, f := range r.Fields {
		if f.Missing {
			return false
		}
	}
	return true
}

// Get returns the value of the named field. ok is false when the field is
// absent or missing from the reply.
func (r *DecodedResponse) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, !f.Missing
		}
	}
	return "", false
}

// Tokens reconstructs the original token sequence: supplied field values in
// order, then the overflow.
func (r *DecodedResponse) Tokens() []string {
	out := make([]string, 0, len(r.Fields)+len(r.Overflow))
	for _, f := range r.Fields {
		if !f.Missing {
			out = append(out, f.Value)
		}
	}
	return append(out, r.Overflow...)
}

// Decode splits raw on commas and zips the tokens against the ordering
// registered for kind. With no ordering registered the result is
// unstructured: fields named by token index.
func (o *Orderings) Decode(raw string, kind ResponseKind) *DecodedResponse {
	return o.DecodeDelim(raw, kind, ",")
}

// DecodeDelim is Decode with a caller-chosen token delimiter.
func (o *Orderings) DecodeDelim(raw string, kind ResponseKind, delim string) *DecodedResponse {
	tokens := splitTokens(raw, delim)

	names, ok := o.Fields(kind)
	if !ok {
		r := &DecodedResponse{Kind: kind, Structured: false}
		for i, tok := range tokens {
			r.Fields = append(r.Fields, Field{Name: strconv.Itoa(i), Value: tok})
		}
		return r
	}

	r := &DecodedResponse{Kind: kind, Structured: true}
	for i, name := range names {
		if i < len(tokens) {
			r.Fields = append(r.Fields, Field{Name: name, Value: tokens[i]})
		} else {
			r.Fields = append(r.Fields, Field{Name: name, Missing: true})
		}
	}
	if len(tokens) > len(names) {
		r.Overflow = append(r.Overflow, tokens[len(names):]...)
	}
	return r
}

// splitTokens splits a reply into trimmed tokens, skipping empties. Replies
// may span lines; line breaks count as delimiters too.
func splitTokens(raw, delim string) []string {
	var tokens []string
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' }) {
		for _, tok := range strings.Split(line, delim) {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}
