// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

var probeQuery string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe which line ending the device answers to",
	Long: `Send a harmless query once per line-ending candidate (CR, LF, CRLF, None)
and report which candidates the device answered.

The probe never reconfigures the session: it prints all four outcomes and
leaves the choice to the operator. Pass the winner to --eol afterwards.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeQuery, "query", scpi.QueryIdentify, "Query sent per candidate")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	adapter, connInfo, err := OpenAdapter()
	if err != nil {
		return err
	}
	defer adapter.Close()

	fmt.Printf("Probing %s with %q\n\n", connInfo, probeQuery)
	results := scpi.ProbeTerminators(adapter, probeQuery)

	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	silentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	responsive := 0
	for _, candidate := range scpi.ProbeCandidates {
		r := results[candidate]
		line := fmt.Sprintf("%-5s %-10s %8v", candidate, r.Outcome, r.Elapsed.Round(time.Millisecond))
		if r.Outcome == scpi.ProbeResponsive {
			responsive++
			fmt.Printf("%s  %q\n", okStyle.Render(line), r.Reply)
		} else {
			fmt.Println(silentStyle.Render(line))
		}
	}

	if responsive == 0 {
		return fmt.Errorf("no line ending got a reply; check wiring and baud rate")
	}
	return nil
}
