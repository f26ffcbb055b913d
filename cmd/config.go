// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

// sessionConfig builds the effective session config. Precedence, lowest to
// highest: built-in defaults, the --config YAML file, explicitly set flags.
func sessionConfig() (scpi.Config, error) {
	cfg := scpi.DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	flags := rootCmd.PersistentFlags()
	if portName != "" {
		cfg.Port = portName
	}
	if flags.Changed("baud") {
		cfg.BaudRate = baudRate
	}
	if flags.Changed("data-bits") {
		cfg.DataBits = dataBits
	}
	if flags.Changed("parity") {
		cfg.Parity = parity
	}
	if flags.Changed("stop-bits") {
		cfg.StopBits = stopBits
	}
	if flags.Changed("encoding") {
		cfg.Encoding = encodingName
	}
	if flags.Changed("eol") {
		cfg.LineEnding = parseLineEnding(eolName)
	}
	if flags.Changed("timeout") || cfg.Timeout == 0 {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return cfg, fmt.Errorf("invalid timeout %q: %w", timeoutFlag, err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseLineEnding accepts the flag spelling case-insensitively.
func parseLineEnding(s string) scpi.LineEnding {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CR":
		return scpi.EndingCR
	case "LF":
		return scpi.EndingLF
	case "CRLF":
		return scpi.EndingCRLF
	case "NONE":
		return scpi.EndingNone
	}
	return scpi.LineEnding(s)
}
