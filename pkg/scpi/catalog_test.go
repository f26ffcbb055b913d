// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"strings"
	"testing"
)

// ============================================================
// Catalog Loader Tests
// ============================================================

func TestLoadCatalog_SemicolonWithTitleRows(t *testing.T) {
	input := strings.Join([]string{
		"MatrixNX command set;;;",
		"exported 2026-03-14;;;",
		"Category;SCPI Command;Response;Description",
		"System;*IDN?;string;Identification",
		"Temperature;SOURce:TEMPerature:ACTual? TEMP_STAGE_SHG;float;SHG stage",
		";;;",
	}, "\n")

	entries, err := LoadCatalog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (title and empty rows skipped)", len(entries))
	}
	if entries[0].Command != "*IDN?" || entries[0].Category != "System" {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].Description != "SHG stage" {
		t.Errorf("entry[1] = %+v", entries[1])
	}
}

func TestLoadCatalog_TabDelimited(t *testing.T) {
	input := "Befehl\tAntwort\tEinheit\n*IDN?\tstring\t-\nALL?\tcsv\t-\n"

	entries, err := LoadCatalog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Command != "ALL?" || entries[1].Response != "csv" {
		t.Errorf("German headers not mapped: %+v", entries[1])
	}
}

func TestLoadCatalog_CommaFallback(t *testing.T) {
	input := "command,description\nSTATus?,device status\n"

	entries, err := LoadCatalog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(entries) != 1 || entries[0].Command != "STATus?" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestLoadCatalog_Empty(t *testing.T) {
	if _, err := LoadCatalog(strings.NewReader("")); err == nil {
		t.Error("empty catalog should error")
	}
}

func TestCatalogEntry_Label(t *testing.T) {
	e := CatalogEntry{Category: "System", Command: "*IDN?"}
	if got := e.Label(); got != "System | *IDN?" {
		t.Errorf("Label = %q", got)
	}
	bare := CatalogEntry{Command: "ALL?"}
	if got := bare.Label(); got != "- | ALL?" {
		t.Errorf("Label without category = %q", got)
	}
}
