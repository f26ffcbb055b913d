// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"strings"
	"unicode/utf8"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// encodeText converts outbound command text to wire bytes under the session
// encoding. Characters the encoding cannot represent are replaced rather
// than failing the send.
func encodeText(s, encoding string) []byte {
	switch encoding {
	case "latin-1":
		enc := xenc.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
		if out, err := enc.Bytes([]byte(s)); err == nil {
			return out
		}
		return []byte(s)
	case "ascii":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r < 0x80 {
				out = append(out, byte(r))
			} else {
				out = append(out, '?')
			}
		}
		return out
	}
	return []byte(s)
}

// decodeText converts inbound wire bytes to text. Undecodable byte sequences
// are substituted with U+FFFD; decoding never fails, so the raw hex stays
// available through the adapter trace hook.
func decodeText(raw []byte, encoding string) string {
	switch encoding {
	case "latin-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err == nil {
			return string(out)
		}
	case "ascii":
		var b strings.Builder
		b.Grow(len(raw))
		for _, c := range raw {
			if c < 0x80 {
				b.WriteByte(c)
			} else {
				b.WriteRune(utf8.RuneError)
			}
		}
		return b.String()
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

// replacementRatio reports the fraction of replacement runes in decoded
// text. Callers use it to decide when a hex dump is worth showing.
func replacementRatio(s string) float64 {
	if s == "" {
		return 0
	}
	total := 0
	bad := 0
	for _, r := range s {
		total++
		if r == utf8.RuneError {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
