// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed orderings.yaml
var builtinOrderingsYAML []byte

// Orderings is the registry of field orderings by response kind. It starts
// from the built-in device tables; Replace and LoadFieldList override an
// ordering for the rest of the session (total replacement, no merge).
//
// The registry is plain configuration passed into Decode, not process-wide
// state, so overrides are testable in isolation.
type Orderings struct {
	version int
	fields  map[ResponseKind][]string
}

type orderingsFile struct {
	Version   int                       `yaml:"version"`
	Orderings map[ResponseKind][]string `yaml:"orderings"`
}

// NewOrderings builds a registry from the embedded device tables.
// The embedded table is a build-time constant, so a parse failure panics.
func NewOrderings() *Orderings {
	var f orderingsFile
	if err := yaml.Unmarshal(builtinOrderingsYAML, &f); err != nil {
		panic(fmt.Sprintf("scpi: embedded orderings table is invalid: %v", err))
	}
	return &Orderings{version: f.Version, fields: f.Orderings}
}

// LoadOrderingsFile reads a full orderings table in the same YAML layout as
// the built-in one, for firmware revisions with a different field order.
func LoadOrderingsFile(r io.Reader) (*Orderings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read orderings: %w", err)
	}
	var f orderingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse orderings: %w", err)
	}
	if len(f.Orderings) == 0 {
		return nil, fmt.Errorf("orderings file defines no response kinds")
	}
	return &Orderings{version: f.Version, fields: f.Orderings}, nil
}

// Version returns the table revision of the loaded orderings.
func (o *Orderings) Version() int {
	return o.version
}

// Fields returns the ordering registered for kind.
func (o *Orderings) Fields(kind ResponseKind) ([]string, bool) {
	f, ok := o.fields[kind]
	return f, ok
}

// Replace overrides the ordering for kind for the rest of the session.
func (o *Orderings) Replace(kind ResponseKind, fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("empty field list for %s", kind)
	}
	o.fields[kind] = fields
	return nil
}

// LoadFieldList reads a plain-text field list (one name per line, blank
// lines skipped, header-ish lines skipped) and installs it as the ordering
// for kind. Returns the number of fields loaded.
func LoadFieldList(o *Orderings, kind ResponseKind, r io.Reader) (int, error) {
	var fields []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sc.Text()), ";"))
		if name == "" {
			continue
		}
		switch strings.ToLower(name) {
		case "field", "parameter", "name":
			continue
		}
		fields = append(fields, name)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read field list: %w", err)
	}
	if err := o.Replace(kind, fields); err != nil {
		return 0, err
	}
	return len(fields), nil
}

// KindForCommand maps a command's text to the response kind of its reply.
// Commands ending in "ALL?" use the ALL layout; "...XALL? <group>" selects
// the matching sub-query layout.
func KindForCommand(command string) (ResponseKind, bool) {
	upper := strings.ToUpper(strings.TrimSpace(command))
	if strings.Contains(upper, "XALL?") {
		switch {
		case strings.Contains(upper, "TEMPERATURES"):
			return KindXallTemperatures, true
		case strings.Contains(upper, "STEPPER"):
			return KindXallStepper, true
		case strings.Contains(upper, "OTHERS"):
			return KindXallOthers, true
		}
		return "", false
	}
	if strings.HasSuffix(upper, "ALL?") {
		return KindAll, true
	}
	return "", false
}
