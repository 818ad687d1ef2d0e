package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busyLibrary returns a seeded library with loans, fines and a payment, saved to store.
func busyLibrary(t *testing.T, store Store) *Library {
	t.Helper()
	clk := &fakeClock{now: t0}
	lib := NewLibrary(store, WithClock(clk.Now), WithLogger(quietLogger()))
	require.NoError(t, lib.Load())

	require.NoError(t, lib.BorrowBook(1001, algorithms))
	require.NoError(t, lib.BorrowBook(1002, cleanCode))
	require.NoError(t, lib.BorrowBook(2001, facultyShelf[0]))
	clk.advance(20 * Day)
	_, err := lib.ReturnBook(1001, algorithms)
	require.NoError(t, err)
	_, err = lib.ReturnBook(1002, cleanCode)
	require.NoError(t, err)
	require.NoError(t, lib.Login(1002, "password2"))
	_, err = lib.PayFines(1002)
	require.NoError(t, err)
	lib.Logout()

	require.NoError(t, lib.Save())
	return lib
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	lib := busyLibrary(t, store)

	for _, name := range []string{booksFile, usersFile, accountsFile, transactionsFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	again := NewLibrary(store, WithLogger(quietLogger()))
	require.NoError(t, again.Load())
	assert.Equal(t, lib.Snapshot(), again.Snapshot())
}

func TestFileStoreMissingFilesLoadEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "fresh"))
	require.NoError(t, err)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Users)
}

func TestFileStoreFilesCarryHeader(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	busyLibrary(t, store)

	data, err := os.ReadFile(filepath.Join(dir, booksFile))
	require.NoError(t, err)
	first, _, _ := strings.Cut(string(data), "\n")
	assert.JSONEq(t, `{"schema":"books","version":1}`, first)
}

func TestFileStoreRejectsCorruptFiles(t *testing.T) {
	const header = `{"schema":"books","version":1}` + "\n"
	cases := []struct {
		name    string
		content string
		line    int
	}{
		{"missing header", "", 1},
		{"wrong schema", `{"schema":"users","version":1}` + "\n", 1},
		{"future version", `{"schema":"books","version":99}` + "\n", 1},
		{"not json", header + "Introduction to Algorithms\n", 2},
		{"unknown field", header + `{"isbn":"1","title":"T","author":"A","status":"Available","shelf":4}` + "\n", 2},
		{"bad status", header + `{"isbn":"1","title":"T","author":"A","status":"Lost"}` + "\n", 2},
		{"borrowed without borrower", header + `{"isbn":"1","title":"T","author":"A","status":"Borrowed","due_date":1700000000}` + "\n", 2},
		{"blank line", header + "\n" + `{"isbn":"1","title":"T","author":"A","status":"Available"}` + "\n", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, booksFile), []byte(tc.content), 0o644))
			store, err := NewFileStore(dir)
			require.NoError(t, err)

			_, err = store.Load()
			require.ErrorIs(t, err, ErrCorruptRecord)
			var cre *CorruptRecordError
			require.True(t, errors.As(err, &cre))
			assert.Equal(t, booksFile, cre.File)
			assert.Equal(t, tc.line, cre.Line)
		})
	}
}

func TestFileStoreRejectsPaidFlagMismatch(t *testing.T) {
	dir := t.TempDir()
	content := `{"schema":"accounts","version":1}` + "\n" +
		`{"user_id":1001,"fines":40,"fines_paid":true,"borrowed":[],"history":[]}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, accountsFile), []byte(content), 0o644))
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Load()
	require.ErrorIs(t, err, ErrCorruptRecord)
	assert.ErrorIs(t, err, errPaidFlagMismatch)
}

func TestLibraryLoadFallsBackOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, usersFile), []byte("garbage\n"), 0o644))
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	lib := NewLibrary(store, WithLogger(quietLogger()))
	require.ErrorIs(t, lib.Load(), ErrCorruptRecord)
	assert.Len(t, lib.Books(), 10)
	require.NoError(t, lib.Login(3001, "password9"))
}

func TestLibraryKeepsFilesThatFailedToLoad(t *testing.T) {
	dir := t.TempDir()
	users := `{"schema":"users","version":1}` + "\n" +
		`{"id":4242,"role":"Student","name":"Real Patron","email":"","password":"pw"}` + "\n"
	accounts := `{"schema":"accounts","version":1}` + "\n" +
		`{"user_id":4242,"fines":70,"fines_paid":true,"borrowed":[],"history":[]}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, usersFile), []byte(users), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, accountsFile), []byte(accounts), 0o644))
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	lib := NewLibrary(store, WithLogger(quietLogger()))
	require.ErrorIs(t, lib.Load(), ErrCorruptRecord)
	require.ErrorIs(t, lib.Save(), ErrUnsafeSave)

	got, err := os.ReadFile(filepath.Join(dir, usersFile))
	require.NoError(t, err)
	assert.Equal(t, users, string(got))
	got, err = os.ReadFile(filepath.Join(dir, accountsFile))
	require.NoError(t, err)
	assert.Equal(t, accounts, string(got))
	assert.NoFileExists(t, filepath.Join(dir, booksFile))
}
