// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <file> [search...]",
	Short: "Browse a device command catalog export",
	Long: `Parse a vendor command-catalog export (CSV, semicolon or tab separated) and
list its commands. Extra arguments filter case-insensitively on command,
category and description.

The parser tolerates title rows above the table and mixed English/German
column headers, as found in vendor spreadsheet exports.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	entries, err := scpi.LoadCatalog(f)
	if err != nil {
		return err
	}

	search := strings.ToLower(strings.Join(args[1:], " "))
	shown := 0
	for _, e := range entries {
		if search != "" && !catalogMatches(e, search) {
			continue
		}
		shown++
		fmt.Printf("%-50s %s\n", e.Label(), e.Description)
		if e.Parameter != "" || e.Unit != "" {
			fmt.Printf("%-50s parameter: %s %s\n", "", e.Parameter, e.Unit)
		}
	}

	fmt.Printf("\n%d of %d command(s)\n", shown, len(entries))
	return nil
}

func catalogMatches(e scpi.CatalogEntry, search string) bool {
	haystack := strings.ToLower(e.Command + " " + e.Category + " " + e.Description)
	return strings.Contains(haystack, search)
}
