package library

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func tempStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteRoundTrip(t *testing.T) {
	s, _ := tempStore(t)
	lib := busyLibrary(t, s)

	again := NewLibrary(s, WithLogger(quietLogger()))
	if err := again.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if want, got := lib.Snapshot(), again.Snapshot(); !reflect.DeepEqual(want, got) {
		t.Fatalf("snapshot mismatch\nwant %+v\ngot  %+v", want, got)
	}
}

func TestSQLiteEmptyDatabaseLoadsEmpty(t *testing.T) {
	s, _ := tempStore(t)
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 0 || len(snap.Users) != 0 || len(snap.Transactions) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSQLiteSaveReplacesPreviousContents(t *testing.T) {
	s, _ := tempStore(t)
	busyLibrary(t, s)

	small := &Snapshot{
		Books:    []Book{NewBook("Dune", "Frank Herbert", "Chilton", 1965, "9780441013593")},
		Users:    []User{NewUser(7, "Reader", "", "pw", RoleStudent)},
		Accounts: []Account{*NewAccount(7)},
	}
	if err := s.Save(small); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 1 || len(snap.Users) != 1 || len(snap.Accounts) != 1 || len(snap.Transactions) != 0 {
		t.Fatalf("old rows survived: %+v", snap)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	s, path := tempStore(t)
	lib := busyLibrary(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Migrations must be a no-op on an existing database.
	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(lib.Snapshot(), snap) {
		t.Fatalf("data changed across reopen")
	}
}

func TestSQLiteUnreadableSchemaVersion(t *testing.T) {
	s, path := tempStore(t)
	if _, err := s.db.Exec(`UPDATE meta SET value='abc' WHERE key='schema_version'`); err != nil {
		t.Fatalf("update meta: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if reopened, err := NewSQLiteStore(path); err == nil {
		reopened.Close()
		t.Fatalf("expected an error for a non-numeric schema version")
	}
}

func TestSQLiteRejectsInvalidRows(t *testing.T) {
	s, _ := tempStore(t)
	if _, err := s.db.Exec(`INSERT INTO books(isbn,title,author,publisher,year,status) VALUES('1','T','A','P',2000,'Lost')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := s.Load()
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want corrupt record error, got %v", err)
	}
}
