package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists snapshots in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies schema
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the single-writer model explicit.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the DB.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY,
            role TEXT NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            password TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL,
            year INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available',
            borrower_id INTEGER NOT NULL DEFAULT 0,
            borrow_date INTEGER NOT NULL DEFAULT 0,
            due_date INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS accounts (
            user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            fines INTEGER NOT NULL DEFAULT 0,
            fines_paid BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS account_books (
            user_id INTEGER NOT NULL REFERENCES accounts(user_id) ON DELETE CASCADE,
            kind TEXT NOT NULL CHECK (kind IN ('borrowed','history')),
            position INTEGER NOT NULL,
            isbn TEXT NOT NULL,
            PRIMARY KEY (user_id, kind, position)
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            kind TEXT NOT NULL,
            user_id INTEGER NOT NULL,
            isbn TEXT NOT NULL DEFAULT '',
            amount INTEGER NOT NULL DEFAULT 0,
            at INTEGER NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Snapshot load/save
// ---------------------------------------------------------------------------

type accountBookRow struct {
	UserID   int64  `db:"user_id"`
	Kind     string `db:"kind"`
	Position int    `db:"position"`
	ISBN     string `db:"isbn"`
}

// Save replaces every row with the snapshot in one transaction.
func (s *SQLiteStore) Save(snap *Snapshot) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"account_books", "accounts", "transactions", "books", "users"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, u := range snap.Users {
		if _, err := tx.NamedExec(`INSERT INTO users(id,role,name,email,password)
            VALUES(:id,:role,:name,:email,:password)`, userToRecord(u)); err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}
	for _, b := range snap.Books {
		if _, err := tx.NamedExec(`INSERT INTO books(isbn,title,author,publisher,year,status,borrower_id,borrow_date,due_date)
            VALUES(:isbn,:title,:author,:publisher,:year,:status,:borrower_id,:borrow_date,:due_date)`, bookToRecord(b)); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ISBN, err)
		}
	}
	for _, a := range snap.Accounts {
		if _, err := tx.NamedExec(`INSERT INTO accounts(user_id,fines,fines_paid)
            VALUES(:user_id,:fines,:fines_paid)`, accountToRecord(a)); err != nil {
			return fmt.Errorf("insert account %d: %w", a.UserID, err)
		}
		if err := insertAccountBooks(tx, a.UserID, "borrowed", a.Borrowed); err != nil {
			return err
		}
		if err := insertAccountBooks(tx, a.UserID, "history", a.History); err != nil {
			return err
		}
	}
	for _, t := range snap.Transactions {
		if _, err := tx.NamedExec(`INSERT INTO transactions(id,kind,user_id,isbn,amount,at)
            VALUES(:id,:kind,:user_id,:isbn,:amount,:at)`, transactionToRecord(t)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func insertAccountBooks(tx *sqlx.Tx, userID int64, kind string, isbns []string) error {
	for i, isbn := range isbns {
		row := accountBookRow{UserID: userID, Kind: kind, Position: i, ISBN: isbn}
		if _, err := tx.NamedExec(`INSERT INTO account_books(user_id,kind,position,isbn)
            VALUES(:user_id,:kind,:position,:isbn)`, row); err != nil {
			return fmt.Errorf("insert %s isbn for account %d: %w", kind, userID, err)
		}
	}
	return nil
}

// Load reads every table and validates each row like the file store does.
func (s *SQLiteStore) Load() (*Snapshot, error) {
	snap := &Snapshot{}

	var books []bookRecord
	if err := s.db.Select(&books, `SELECT isbn,title,author,publisher,year,status,borrower_id,borrow_date,due_date FROM books ORDER BY isbn`); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	for i, r := range books {
		b, err := r.toBook()
		if err != nil {
			return nil, corrupt("books", i+1, err, "invalid book %s", r.ISBN)
		}
		snap.Books = append(snap.Books, b)
	}

	var users []userRecord
	if err := s.db.Select(&users, `SELECT id,role,name,email,password FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i, r := range users {
		u, err := r.toUser()
		if err != nil {
			return nil, corrupt("users", i+1, err, "invalid user %d", r.ID)
		}
		snap.Users = append(snap.Users, u)
	}

	var accounts []accountRecord
	if err := s.db.Select(&accounts, `SELECT user_id,fines,fines_paid FROM accounts ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	var rows []accountBookRow
	if err := s.db.Select(&rows, `SELECT user_id,kind,position,isbn FROM account_books ORDER BY user_id, kind, position`); err != nil {
		return nil, fmt.Errorf("load account books: %w", err)
	}
	byUser := make(map[int64][]accountBookRow)
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	for i, r := range accounts {
		list := byUser[r.UserID]
		sort.SliceStable(list, func(a, b int) bool { return list[a].Position < list[b].Position })
		for _, row := range list {
			switch row.Kind {
			case "borrowed":
				r.Borrowed = append(r.Borrowed, row.ISBN)
			case "history":
				r.History = append(r.History, row.ISBN)
			}
		}
		a, err := r.toAccount()
		if err != nil {
			return nil, corrupt("accounts", i+1, err, "invalid account %d", r.UserID)
		}
		snap.Accounts = append(snap.Accounts, a)
	}

	var txs []transactionRecord
	if err := s.db.Select(&txs, `SELECT id,kind,user_id,isbn,amount,at FROM transactions ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	for i, r := range txs {
		t, err := r.toTransaction()
		if err != nil {
			return nil, corrupt("transactions", i+1, err, "invalid transaction %s", r.ID)
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	return snap, nil
}
