// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int
	dataBits int
	parity   string
	stopBits string

	// Session flags
	timeoutFlag  string
	encodingName string
	eolName      string
	configPath   string
	logLevel     string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "scpiterm",
	Short: "SCPI Serial Terminal",
	Long: `Scpiterm - A CLI terminal for SCPI instruments on serial lines.

Provides an interactive terminal, a line-ending probe, structured decoding of
multi-value queries (ALL?, SERVice:XALL?), a 100 ms temperature monitor for
the SHG/THG stages and reference comparison of saved parameter sets.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the SCPITERM_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "2.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
		return nil
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&dataBits, "data-bits", 8, "Data bits (5-8)")
	rootCmd.PersistentFlags().StringVar(&parity, "parity", "None", "Parity: None, Even, Odd, Mark, Space")
	rootCmd.PersistentFlags().StringVar(&stopBits, "stop-bits", "1", "Stop bits: 1, 1.5, 2")

	// Session flags
	rootCmd.PersistentFlags().StringVarP(&timeoutFlag, "timeout", "t", "1s", "Reply timeout per exchange")
	rootCmd.PersistentFlags().StringVar(&encodingName, "encoding", "ascii", "Text encoding: ascii, utf-8, latin-1")
	rootCmd.PersistentFlags().StringVar(&eolName, "eol", "CR", "Line ending: CR, LF, CRLF, None")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file with session defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
