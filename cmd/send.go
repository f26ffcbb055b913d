// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

var (
	sendHexTrace  bool
	sendRaw       bool
	orderingsPath string
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [command...]",
	Short: "Send SCPI commands and print the replies",
	Long: `Send one or more SCPI commands over the open session and print each reply.

Replies to recognized multi-value queries (ALL?, SERVice:XALL? <group>) are
decoded against the device's field ordering and printed as a name/value
table. Pass --raw to skip decoding, or --orderings to load a replacement
ordering table for a different firmware revision.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().BoolVar(&sendHexTrace, "hex", false, "Log raw TX/RX bytes as hex")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Print replies verbatim, without structured decoding")
	sendCmd.Flags().StringVar(&orderingsPath, "orderings", "", "YAML file replacing the built-in field orderings")
	rootCmd.AddCommand(sendCmd)
}

// loadOrderings returns the built-in tables or the --orderings replacement.
func loadOrderings() (*scpi.Orderings, error) {
	if orderingsPath == "" {
		return scpi.NewOrderings(), nil
	}
	f, err := os.Open(orderingsPath)
	if err != nil {
		return nil, fmt.Errorf("open orderings: %w", err)
	}
	defer f.Close()
	return scpi.LoadOrderingsFile(f)
}

// hexTrace logs every raw byte sequence on the wire.
func hexTrace(dir scpi.Direction, raw []byte) {
	log.WithField("dir", dir.String()).Debugf("% X", raw)
}

func runSend(cmd *cobra.Command, args []string) error {
	orderings, err := loadOrderings()
	if err != nil {
		return err
	}

	adapter, connInfo, err := OpenAdapter()
	if err != nil {
		return err
	}
	defer adapter.Close()
	if sendHexTrace {
		log.SetLevel(log.DebugLevel)
		adapter.SetTrace(hexTrace)
	}
	log.Debugf("Connection: %s", connInfo)

	failures := 0
	for _, command := range args {
		ex := adapter.Exchange(command)
		printExchange(ex, orderings)
		if ex.Outcome != scpi.OutcomeSuccess {
			failures++
		}
		if ex.Outcome == scpi.OutcomeIOError {
			return fmt.Errorf("session failed: %w", ex.Err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d command(s) got no reply", failures)
	}
	return nil
}

func printExchange(ex scpi.Exchange, orderings *scpi.Orderings) {
	fmt.Printf("TX> %s\n", ex.Command)

	switch ex.Outcome {
	case scpi.OutcomeTimeout:
		fmt.Printf("RX> (timeout after %v)\n", ex.Elapsed.Round(time.Millisecond))
		return
	case scpi.OutcomeIOError:
		fmt.Printf("RX> (error: %v)\n", ex.Err)
		return
	}

	fmt.Printf("RX> %s\n", ex.Reply)
	if ex.HexHint() {
		fmt.Printf("    hex: %s\n", hex.EncodeToString(ex.Raw))
	}

	if sendRaw {
		return
	}
	kind, ok := scpi.KindForCommand(ex.Command)
	if !ok {
		return
	}
	printDecoded(orderings.Decode(ex.Reply, kind))
}

func printDecoded(r *scpi.DecodedResponse) {
	width := 0
	for _, f := range r.Fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	for _, f := range r.Fields {
		if f.Missing {
			fmt.Printf("    %-*s  (missing)\n", width, f.Name)
			continue
		}
		fmt.Printf("    %-*s  %s\n", width, f.Name, f.Value)
	}
	for _, tok := range r.Overflow {
		fmt.Printf("    %-*s  %s\n", width, "(extra)", tok)
	}
	if !r.Complete() {
		log.Warnf("reply did not match the %s ordering exactly", r.Kind)
	}
}
