package library

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

const (
	booksFile        = "books.jsonl"
	usersFile        = "users.jsonl"
	accountsFile     = "accounts.jsonl"
	transactionsFile = "transactions.jsonl"
)

// recordJSON rejects unknown fields so a drifting schema fails loudly.
var recordJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// fileHeader is the first line of every data file.
type fileHeader struct {
	Schema  string `json:"schema"`
	Version int    `json:"version"`
}

// FileStore keeps one JSON-lines file per entity kind in a data directory.
type FileStore struct {
	dir string
}

// NewFileStore uses dir for data files, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir is the data directory.
func (s *FileStore) Dir() string { return s.dir }

// Close is a no-op; files are opened per Load/Save.
func (s *FileStore) Close() error { return nil }

// Load reads all four files. A missing file counts as empty. Any malformed or invalid
// record fails the whole load with a *CorruptRecordError.
func (s *FileStore) Load() (*Snapshot, error) {
	snap := &Snapshot{}

	books, err := readRecords[bookRecord](s.path(booksFile), "books")
	if err != nil {
		return nil, err
	}
	for i, r := range books {
		b, err := r.toBook()
		if err != nil {
			return nil, corrupt(booksFile, i+2, err, "invalid book")
		}
		snap.Books = append(snap.Books, b)
	}

	users, err := readRecords[userRecord](s.path(usersFile), "users")
	if err != nil {
		return nil, err
	}
	for i, r := range users {
		u, err := r.toUser()
		if err != nil {
			return nil, corrupt(usersFile, i+2, err, "invalid user")
		}
		snap.Users = append(snap.Users, u)
	}

	accounts, err := readRecords[accountRecord](s.path(accountsFile), "accounts")
	if err != nil {
		return nil, err
	}
	for i, r := range accounts {
		a, err := r.toAccount()
		if err != nil {
			return nil, corrupt(accountsFile, i+2, err, "invalid account")
		}
		snap.Accounts = append(snap.Accounts, a)
	}

	txs, err := readRecords[transactionRecord](s.path(transactionsFile), "transactions")
	if err != nil {
		return nil, err
	}
	for i, r := range txs {
		t, err := r.toTransaction()
		if err != nil {
			return nil, corrupt(transactionsFile, i+2, err, "invalid transaction")
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	return snap, nil
}

// Save overwrites all four files. Each file is written to a temp file and renamed.
func (s *FileStore) Save(snap *Snapshot) error {
	books := make([]bookRecord, 0, len(snap.Books))
	for _, b := range snap.Books {
		books = append(books, bookToRecord(b))
	}
	users := make([]userRecord, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, userToRecord(u))
	}
	accounts := make([]accountRecord, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accounts = append(accounts, accountToRecord(a))
	}
	txs := make([]transactionRecord, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		txs = append(txs, transactionToRecord(t))
	}

	if err := writeRecords(s.path(booksFile), "books", books); err != nil {
		return err
	}
	if err := writeRecords(s.path(usersFile), "users", users); err != nil {
		return err
	}
	if err := writeRecords(s.path(accountsFile), "accounts", accounts); err != nil {
		return err
	}
	return writeRecords(s.path(transactionsFile), "transactions", txs)
}

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name) }

func readRecords[T any](path, schema string) ([]T, error) {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []T
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if line == 1 {
			var h fileHeader
			if err := recordJSON.Unmarshal(raw, &h); err != nil {
				return nil, corrupt(name, line, err, "bad header")
			}
			if h.Schema != schema {
				return nil, corrupt(name, line, nil, "schema %q, want %q", h.Schema, schema)
			}
			if h.Version < 1 || h.Version > SchemaVersion {
				return nil, corrupt(name, line, nil, "unsupported schema version %d", h.Version)
			}
			continue
		}
		if len(raw) == 0 {
			return nil, corrupt(name, line, nil, "empty line")
		}
		var rec T
		if err := recordJSON.Unmarshal(raw, &rec); err != nil {
			return nil, corrupt(name, line, err, "undecodable record")
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, corrupt(name, line+1, err, "unreadable line")
	}
	if line == 0 {
		return nil, corrupt(name, 1, nil, "missing header")
	}
	return out, nil
}

func writeRecords[T any](path, schema string, recs []T) error {
	var buf bytes.Buffer
	stream := recordJSON.BorrowStream(&buf)
	defer recordJSON.ReturnStream(stream)

	writeLine := func(v any) error {
		stream.WriteVal(v)
		stream.WriteRaw("\n")
		return stream.Error
	}
	if err := writeLine(fileHeader{Schema: schema, Version: SchemaVersion}); err != nil {
		return fmt.Errorf("encode %s header: %w", schema, err)
	}
	for _, r := range recs {
		if err := writeLine(r); err != nil {
			return fmt.Errorf("encode %s: %w", schema, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("encode %s: %w", schema, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", schema, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", schema, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", schema, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", schema, err)
	}
	return nil
}
