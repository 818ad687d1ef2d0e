package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"library-lending/config"
	"library-lending/library"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Without a subcommand it runs the interactive console.
func newRootCmd() *cobra.Command {
	cfg := config.LoadConfig()

	root := &cobra.Command{
		Use:           "lms",
		Short:         "Library lending console",
		Long:          "Tracks books, users and loans, and enforces role-based borrowing and fine rules.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			level, _ := cfg.SlogLevel()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			defer lib.Close()

			c := newConsole(bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout(), lib)
			c.run()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding library data")
	root.PersistentFlags().StringVar(&cfg.Store, "store", cfg.Store, "storage backend: file or sqlite")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(newSeedCmd(&cfg), newReportCmd(&cfg))
	return root
}

// openStore builds the configured backend inside cfg.DataDir.
func openStore(cfg config.Config) (library.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return library.NewSQLiteStore(cfg.SQLitePath())
	default:
		return library.NewFileStore(cfg.DataDir)
	}
}

// openLibrary opens the store and loads it. Load problems are reported as a warning and
// the library starts from whatever could be loaded.
func openLibrary(cfg config.Config) (*library.Library, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	scheme, err := library.ParsePasswordScheme(cfg.PasswordScheme)
	if err != nil {
		store.Close()
		return nil, err
	}
	lib := library.NewLibrary(store,
		library.WithLogger(slog.Default()),
		library.WithPasswordScheme(scheme),
		library.WithSeed(cfg.Seed),
	)
	if err := lib.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v. Starting with default data.\n", err)
	}
	return lib, nil
}
