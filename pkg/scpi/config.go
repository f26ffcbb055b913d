// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The scpiterm Authors

package scpi

import (
	"fmt"
	"time"
)

// Config holds the serial session parameters. The transport-level fields
// (Port, BaudRate, DataBits, Parity, StopBits) are mapped to the OS driver
// by the caller that opens the port; the session-level fields (Timeout,
// Encoding, LineEnding) are applied by the Adapter on every exchange.
type Config struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud"`
	DataBits int           `yaml:"data_bits"`
	Parity   string        `yaml:"parity"`
	StopBits string        `yaml:"stop_bits"`
	Timeout  time.Duration `yaml:"timeout"`
	Encoding string        `yaml:"encoding"`

	LineEnding LineEnding `yaml:"line_ending"`
}

// DefaultConfig returns the 115200 8N1 CR preset.
func DefaultConfig() Config {
	return Config{
		BaudRate:   115200,
		DataBits:   8,
		Parity:     "None",
		StopBits:   "1",
		Timeout:    DefaultTimeout,
		Encoding:   "ascii",
		LineEnding: EndingCR,
	}
}

// Validate checks that every parameter is one of the values the device
// driver accepts. It does not touch the port.
func (c Config) Validate() error {
	switch c.DataBits {
	case 5, 6, 7, 8:
	default:
		return fmt.Errorf("invalid data bits: %d (want 5-8)", c.DataBits)
	}
	switch c.Parity {
	case "None", "Even", "Odd", "Mark", "Space":
	default:
		return fmt.Errorf("invalid parity: %q", c.Parity)
	}
	switch c.StopBits {
	case "1", "1.5", "2":
	default:
		return fmt.Errorf("invalid stop bits: %q", c.StopBits)
	}
	switch c.Encoding {
	case "ascii", "utf-8", "latin-1":
	default:
		return fmt.Errorf("unsupported encoding: %q", c.Encoding)
	}
	switch c.LineEnding {
	case EndingCR, EndingLF, EndingCRLF, EndingNone:
	default:
		return fmt.Errorf("invalid line ending: %q", c.LineEnding)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Framing returns the short 8N1-style framing summary used in status lines.
func (c Config) Framing() string {
	return fmt.Sprintf("%d%c%s", c.DataBits, c.Parity[0], c.StopBits)
}
