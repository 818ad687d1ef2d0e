package main

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"library-lending/config"
	"library-lending/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T, now time.Time) *library.Library {
	t.Helper()
	lib := library.NewLibrary(nil,
		library.WithClock(func() time.Time { return now }),
		library.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, lib.Load())
	return lib
}

func runScript(lib *library.Library, lines ...string) string {
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	newConsole(bufio.NewScanner(in), &out, lib).run()
	return out.String()
}

func TestConsoleStudentSession(t *testing.T) {
	lib := newTestLibrary(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	out := runScript(lib,
		"1", "1001", "wrong",
		"1", "1001", "password1",
		"4", "9780262033848",
		"3",
		"6",
		"2",
	)

	assert.Contains(t, out, "Login failed")
	assert.Contains(t, out, "Welcome, John Smith!")
	assert.Contains(t, out, "Book 'Introduction to Algorithms' borrowed. Due 2024-03-16 09:00.")
	assert.Contains(t, out, "Currently borrowed books:")
	assert.Contains(t, out, "Logged out successfully.")
	assert.Contains(t, out, "Goodbye!")

	b, err := lib.GetBook("9780262033848")
	require.NoError(t, err)
	assert.Equal(t, library.StatusBorrowed, b.Status)
	assert.False(t, lib.IsLoggedIn())
}

func TestConsoleStudentCannotBorrowFourth(t *testing.T) {
	lib := newTestLibrary(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	out := runScript(lib,
		"1", "1002", "password2",
		"4", "9780262033848",
		"4", "9780132350884",
		"4", "9780201633610",
		"4", "9780201616224",
	)
	assert.Contains(t, out, "Error borrowing book: not permitted: students may borrow at most 3 books")
}

func TestConsoleLibrarianManagesCatalog(t *testing.T) {
	lib := newTestLibrary(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	out := runScript(lib,
		"1", "3001", "password9",
		"1", "3", "Dune", "Frank Herbert", "Chilton", "9780441013593", "1965",
		"2", "dune",
		"6",
		"2", "1",
		"5",
		"3", "1",
		"4",
		"6",
	)

	assert.Contains(t, out, "Book added successfully.")
	assert.Contains(t, out, "Found 1 book(s) matching 'dune'")
	assert.Contains(t, out, "Laura Librarian")
	assert.Contains(t, out, "No overdue books.")

	b, err := lib.GetBook("9780441013593")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
}

func TestConsoleMemberCannotSeeLibrarianMenu(t *testing.T) {
	lib := newTestLibrary(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	out := runScript(lib, "1", "2001", "password6", "9", "6", "2")
	assert.Contains(t, out, "[Faculty: Dr. Alan Turing]")
	assert.Contains(t, out, "Invalid choice. Try again.")
	assert.NotContains(t, out, "Books management")
}

func TestOpenLibraryFileStore(t *testing.T) {
	cfg := config.Config{
		DataDir:        t.TempDir(),
		Store:          config.StoreFile,
		PasswordScheme: "plain",
		LogLevel:       "error",
		Seed:           true,
	}
	lib, err := openLibrary(cfg)
	require.NoError(t, err)
	defer lib.Close()
	assert.Len(t, lib.Books(), 10)
	require.NoError(t, lib.Save())

	cfg.PasswordScheme = "rot13"
	_, err = openLibrary(cfg)
	assert.Error(t, err)
}

func TestConsoleExitKeepsDataThatFailedToLoad(t *testing.T) {
	dir := t.TempDir()
	users := `{"schema":"users","version":1}` + "\n" +
		`{"id":4242,"role":"Student","name":"Real Patron","email":"","password":"pw"}` + "\n"
	accounts := `{"schema":"accounts","version":1}` + "\n" +
		`{"user_id":4242,"fines":70,"fines_paid":true,"borrowed":[],"history":[]}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.jsonl"), []byte(users), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.jsonl"), []byte(accounts), 0o644))

	cfg := config.Config{DataDir: dir, Store: config.StoreFile, PasswordScheme: "plain", LogLevel: "error", Seed: true}
	lib, err := openLibrary(cfg)
	require.NoError(t, err)
	defer lib.Close()

	out := runScript(lib, "2")
	assert.Contains(t, out, "Warning: could not save data")
	assert.NotContains(t, out, "Goodbye!")

	got, err := os.ReadFile(filepath.Join(dir, "users.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "Real Patron")
	assert.NotContains(t, string(got), "John Smith")
	got, err = os.ReadFile(filepath.Join(dir, "accounts.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "4242")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Introdu...", truncateString("Introduction to Algorithms", 10))
	assert.Equal(t, "Int", truncateString("Introduction", 3))
}
