package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"library-lending/config"
	"library-lending/library"

	"github.com/spf13/cobra"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	cfg := config.LoadConfig()
	var from string

	cmd := &cobra.Command{
		Use:          "import_legacy",
		Short:        "Convert a legacy books.txt/users.txt/accounts.txt directory into the configured store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			level, _ := cfg.SlogLevel()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return runImport(cmd.OutOrStdout(), cfg, from)
		},
	}
	cmd.Flags().StringVar(&from, "from", "legacy", "legacy data directory to read")
	cmd.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory to write library data to")
	cmd.Flags().StringVar(&cfg.Store, "store", cfg.Store, "storage backend: file or sqlite")
	return cmd
}

func runImport(out io.Writer, cfg config.Config, from string) error {
	fmt.Fprintf(out, "Reading legacy data from %s...\n", from)
	snap, err := library.ReadLegacyDir(from)
	if err != nil {
		return fmt.Errorf("read legacy data: %w", err)
	}
	fmt.Fprintf(out, "Found %d book(s), %d user(s), %d account(s).\n", len(snap.Books), len(snap.Users), len(snap.Accounts))

	var store library.Store
	switch cfg.Store {
	case config.StoreSQLite:
		store, err = library.NewSQLiteStore(cfg.SQLitePath())
	default:
		store, err = library.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	lib := library.NewLibrary(store, library.WithLogger(slog.Default()), library.WithSeed(false))
	defer lib.Close()
	if err := lib.Import(snap); err != nil {
		return fmt.Errorf("legacy data is inconsistent: %w", err)
	}
	if err := lib.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	fmt.Fprintf(out, "\nImport complete! Wrote %s store in %s\n", cfg.Store, cfg.DataDir)
	books := lib.Books()
	if len(books) > 0 {
		fmt.Fprintf(out, "\n%-15s %-50s %-30s\n", "ISBN", "Title", "Author")
		fmt.Fprintln(out, strings.Repeat("-", 95))
		for _, book := range books {
			fmt.Fprintf(out, "%-15s %-50s %-30s\n", book.ISBN, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
