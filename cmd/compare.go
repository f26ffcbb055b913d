// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

var compareRefPath string

var compareCmd = &cobra.Command{
	Use:   "compare <query>",
	Short: "Compare a decoded reply against a saved reference set",
	Long: `Send a structured query (ALL?, SERVice:XALL? <group>), decode the reply and
diff every field against a previously saved reference file.

Values compare as exact strings after whitespace trimming. Fields present on
only one side are reported as missing on the other, so the diff is symmetric.
Exits non-zero when any field mismatches.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareRefPath, "ref", "r", "", "Reference parameter file (required)")
	compareCmd.Flags().StringVar(&orderingsPath, "orderings", "", "YAML file replacing the built-in field orderings")
	compareCmd.MarkFlagRequired("ref")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	query := args[0]
	kind, ok := scpi.KindForCommand(query)
	if !ok {
		return fmt.Errorf("%q is not a structured query; use ALL? or SERVice:XALL? <group>", query)
	}

	orderings, err := loadOrderings()
	if err != nil {
		return err
	}

	f, err := os.Open(compareRefPath)
	if err != nil {
		return fmt.Errorf("open reference: %w", err)
	}
	ref, err := scpi.LoadReferenceSet(f)
	f.Close()
	if err != nil {
		return err
	}

	adapter, _, err := OpenAdapter()
	if err != nil {
		return err
	}
	defer adapter.Close()

	ex := adapter.Exchange(query)
	if ex.Outcome != scpi.OutcomeSuccess {
		return fmt.Errorf("query %q: %s", query, ex.Outcome)
	}

	decoded := orderings.Decode(ex.Reply, kind)
	result := scpi.Compare(decoded, ref)

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)

	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	diffStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	missStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	mismatches := 0
	for _, name := range names {
		status := result[name]
		current, _ := decoded.Get(name)
		expected := ref[name]

		switch status {
		case scpi.StatusMatch:
			fmt.Printf("%s %-24s %s\n", matchStyle.Render("ok  "), name, current)
		case scpi.StatusMismatch:
			mismatches++
			fmt.Printf("%s %-24s %s (reference: %s)\n", diffStyle.Render("diff"), name, current, expected)
		case scpi.StatusMissingCurrent:
			fmt.Printf("%s %-24s (reference: %s)\n", missStyle.Render("miss"), name, expected)
		case scpi.StatusMissingReference:
			fmt.Printf("%s %-24s %s (not in reference)\n", missStyle.Render("miss"), name, current)
		}
	}

	if mismatches > 0 {
		return fmt.Errorf("%d field(s) differ from the reference", mismatches)
	}
	return nil
}
