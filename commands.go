package main

import (
	"fmt"
	"strings"

	"library-lending/config"

	"github.com/spf13/cobra"
)

// newSeedCmd loads (seeding an empty catalog) and saves straight away, which is handy
// for creating a fresh data directory.
func newSeedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the data directory with demo books and users if it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Seed = true
			lib, err := openLibrary(*cfg)
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := lib.Save(); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Library at %s has %d book(s).\n", cfg.DataDir, len(lib.Books()))
			return nil
		},
	}
}

// newReportCmd prints read-only reports without starting the console.
func newReportCmd(cfg *config.Config) *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Print lending reports",
	}

	report.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "List borrowed books past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary(*cfg)
			if err != nil {
				return err
			}
			defer lib.Close()
			printOverdue(cmd.OutOrStdout(), lib)
			return nil
		},
	})

	report.AddCommand(&cobra.Command{
		Use:   "fines",
		Short: "Project fines on students' overdue loans (no balances change)",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary(*cfg)
			if err != nil {
				return err
			}
			defer lib.Close()
			printFineProjection(cmd.OutOrStdout(), lib)
			return nil
		},
	})
	return report
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}

func rule(n int) string { return strings.Repeat("-", n) }
