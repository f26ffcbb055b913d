// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Interactive SCPI terminal",
	Long: `Open a full-screen interactive terminal on the session.

Type a command and press Enter to send it. Replies to recognized multi-value
queries are decoded inline. Up/Down recall command history.

Keys:
  Enter    send the typed command
  Up/Down  command history
  Ctrl+P   probe line endings
  Ctrl+T   toggle the SHG/THG temperature monitor
  Ctrl+C   quit`,
	RunE: runTerm,
}

func init() {
	termCmd.Flags().StringVar(&orderingsPath, "orderings", "", "YAML file replacing the built-in field orderings")
	rootCmd.AddCommand(termCmd)
}

func runTerm(cmd *cobra.Command, args []string) error {
	orderings, err := loadOrderings()
	if err != nil {
		return err
	}

	adapter, connInfo, err := OpenAdapter()
	if err != nil {
		return err
	}
	defer adapter.Close()

	model := initialTermModel(adapter, orderings, connInfo)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}
	return nil
}
