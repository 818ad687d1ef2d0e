package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"library-lending/config"
	"library-lending/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	body := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunImportWritesFileStore(t *testing.T) {
	legacy := t.TempDir()
	writeLines(t, legacy, "books.txt",
		"Clean Code", "Robert C. Martin", "Prentice Hall", "2008", "9780132350884",
		"Borrowed", "1001", "1709283600", "1710579600")
	writeLines(t, legacy, "users.txt",
		"Student", "1001", "John Smith", "john@example.com", "password1")
	writeLines(t, legacy, "accounts.txt",
		"1001", "0", "1", "1", "9780132350884", "1", "9780132350884")

	cfg := config.Config{DataDir: t.TempDir(), Store: config.StoreFile}
	var out bytes.Buffer
	require.NoError(t, runImport(&out, cfg, legacy))
	assert.Contains(t, out.String(), "Import complete!")
	assert.Contains(t, out.String(), "9780132350884")

	store, err := library.NewFileStore(cfg.DataDir)
	require.NoError(t, err)
	lib := library.NewLibrary(store, library.WithSeed(false),
		library.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, lib.Load())

	b, err := lib.GetBook("9780132350884")
	require.NoError(t, err)
	assert.Equal(t, library.StatusBorrowed, b.Status)
	assert.Equal(t, int64(1001), b.BorrowerID)
	require.NoError(t, lib.Login(1001, "password1"))
}

func TestRunImportRejectsInconsistentData(t *testing.T) {
	legacy := t.TempDir()
	// The account names a user that does not exist.
	writeLines(t, legacy, "accounts.txt", "1001", "0", "1", "0", "0")

	cfg := config.Config{DataDir: t.TempDir(), Store: config.StoreFile}
	err := runImport(io.Discard, cfg, legacy)
	require.ErrorIs(t, err, library.ErrCorruptRecord)
	assert.NoFileExists(t, filepath.Join(cfg.DataDir, "users.jsonl"))
}
