// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors
//
// Scpiterm - SCPI Serial Terminal
//
// A CLI terminal for SCPI instruments on serial lines, with structured
// decoding of multi-value queries and a temperature monitor.

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/opticslab/scpiterm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
