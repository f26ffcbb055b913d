// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CatalogEntry is one row of the device's command catalog. Only Command is
// required; the rest is operator-facing context.
type CatalogEntry struct {
	Category    string
	Command     string
	Response    string
	Instance    string
	Parameter   string
	Unit        string
	Description string
}

// Label returns the "category | command" form used in pickers.
func (e CatalogEntry) Label() string {
	category := e.Category
	if category == "" {
		category = "-"
	}
	return category + " | " + e.Command
}

// Column-name variants accepted per field. Catalogs come from vendor
// spreadsheets with mixed English/German headers.
var catalogColumns = map[string][]string{
	"category":    {"category", "kategorie", "group"},
	"command":     {"scpi command", "command", "befehl", "scpi", "cmd"},
	"response":    {"response", "antwort", "resp"},
	"instance":    {"instance"},
	"parameter":   {"parameter"},
	"unit":        {"unit", "einheit"},
	"description": {"description", "beschreibung"},
}

// headerScoreKeys are the substrings that identify a header row.
var headerScoreKeys = []string{
	"category", "command", "befehl", "parameter", "response", "antwort", "unit", "description",
}

// LoadCatalog parses a delimited command catalog. The delimiter is sniffed
// from the first line (tab, then semicolon, then comma) and the header row
// is detected by scoring the first rows for known column names, since
// vendor exports often carry title rows above the table.
func LoadCatalog(r io.Reader) ([]CatalogEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	text := string(data)

	firstLine, _, _ := strings.Cut(text, "\n")
	delim := ','
	switch {
	case strings.Contains(firstLine, "\t"):
		delim = '\t'
	case strings.Contains(firstLine, ";"):
		delim = ';'
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	headerIdx, header := detectHeader(rows)

	var entries []CatalogEntry
	for _, row := range rows[headerIdx+1:] {
		cells := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				cells[name] = strings.TrimSpace(row[i])
			}
		}

		command := pickColumn(cells, catalogColumns["command"])
		if command == "" {
			continue
		}
		entries = append(entries, CatalogEntry{
			Category:    pickColumn(cells, catalogColumns["category"]),
			Command:     command,
			Response:    pickColumn(cells, catalogColumns["response"]),
			Instance:    pickColumn(cells, catalogColumns["instance"]),
			Parameter:   pickColumn(cells, catalogColumns["parameter"]),
			Unit:        pickColumn(cells, catalogColumns["unit"]),
			Description: pickColumn(cells, catalogColumns["description"]),
		})
	}
	return entries, nil
}

// detectHeader scores the first rows against known column names and picks
// the best match.
func detectHeader(rows [][]string) (int, []string) {
	bestIdx := 0
	bestScore := -1
	var bestHeader []string

	limit := len(rows)
	if limit > 25 {
		limit = 25
	}
	for idx := 0; idx < limit; idx++ {
		header := make([]string, len(rows[idx]))
		score := 0
		for i, cell := range rows[idx] {
			header[i] = strings.ToLower(strings.TrimSpace(cell))
			for _, key := range headerScoreKeys {
				if strings.Contains(header[i], key) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestIdx, bestScore, bestHeader = idx, score, header
		}
	}
	return bestIdx, bestHeader
}

func pickColumn(cells map[string]string, variants []string) string {
	for _, key := range variants {
		if v := cells[key]; v != "" {
			return v
		}
	}
	return ""
}
