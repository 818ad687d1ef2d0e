package library

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Legacy data directories hold books.txt, users.txt and accounts.txt with one field
// per line and no escaping.
const (
	legacyBooksFile    = "books.txt"
	legacyUsersFile    = "users.txt"
	legacyAccountsFile = "accounts.txt"
)

// ReadLegacyDir parses a legacy line-per-field data directory into a Snapshot. A missing
// file is empty, and any malformed field returns a *CorruptRecordError naming the file
// and line.
func ReadLegacyDir(dir string) (*Snapshot, error) {
	snap := &Snapshot{}

	lr, err := openLegacy(dir, legacyBooksFile)
	if err != nil {
		return nil, err
	}
	for lr != nil && lr.more() {
		b, err := lr.book()
		if err != nil {
			return nil, err
		}
		snap.Books = append(snap.Books, b)
	}

	lr, err = openLegacy(dir, legacyUsersFile)
	if err != nil {
		return nil, err
	}
	for lr != nil && lr.more() {
		u, err := lr.user()
		if err != nil {
			return nil, err
		}
		snap.Users = append(snap.Users, u)
	}

	lr, err = openLegacy(dir, legacyAccountsFile)
	if err != nil {
		return nil, err
	}
	for lr != nil && lr.more() {
		a, err := lr.account()
		if err != nil {
			return nil, err
		}
		snap.Accounts = append(snap.Accounts, a)
	}
	return snap, nil
}

type legacyReader struct {
	file  string
	lines []string
	pos   int
}

func openLegacy(dir, name string) (*legacyReader, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	lr := &legacyReader{file: name}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lr.lines = append(lr.lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	// Trailing blank lines are padding, not records.
	for len(lr.lines) > 0 && strings.TrimSpace(lr.lines[len(lr.lines)-1]) == "" {
		lr.lines = lr.lines[:len(lr.lines)-1]
	}
	return lr, nil
}

func (r *legacyReader) more() bool { return r.pos < len(r.lines) }

func (r *legacyReader) next(field string) (string, error) {
	if r.pos >= len(r.lines) {
		return "", corrupt(r.file, r.pos+1, nil, "unexpected end of file reading %s", field)
	}
	s := r.lines[r.pos]
	r.pos++
	return s, nil
}

func (r *legacyReader) int64Field(field string) (int64, error) {
	s, err := r.next(field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, corrupt(r.file, r.pos, err, "%s is not an integer", field)
	}
	return n, nil
}

func (r *legacyReader) book() (Book, error) {
	start := r.pos + 1
	var rec bookRecord
	var err error
	if rec.Title, err = r.next("title"); err != nil {
		return Book{}, err
	}
	if rec.Author, err = r.next("author"); err != nil {
		return Book{}, err
	}
	if rec.Publisher, err = r.next("publisher"); err != nil {
		return Book{}, err
	}
	year, err := r.int64Field("year")
	if err != nil {
		return Book{}, err
	}
	rec.Year = int(year)
	if rec.ISBN, err = r.next("ISBN"); err != nil {
		return Book{}, err
	}
	if rec.Status, err = r.next("status"); err != nil {
		return Book{}, err
	}
	if rec.BorrowerID, err = r.int64Field("borrower id"); err != nil {
		return Book{}, err
	}
	if rec.BorrowDate, err = r.int64Field("borrow date"); err != nil {
		return Book{}, err
	}
	if rec.DueDate, err = r.int64Field("due date"); err != nil {
		return Book{}, err
	}
	b, err := rec.toBook()
	if err != nil {
		return Book{}, corrupt(r.file, start, err, "invalid book")
	}
	return b, nil
}

func (r *legacyReader) user() (User, error) {
	start := r.pos + 1
	var rec userRecord
	var err error
	if rec.Role, err = r.next("role"); err != nil {
		return User{}, err
	}
	if _, err := ParseRole(rec.Role); err != nil {
		return User{}, corrupt(r.file, start, err, "bad role tag")
	}
	if rec.ID, err = r.int64Field("user id"); err != nil {
		return User{}, err
	}
	if rec.Name, err = r.next("name"); err != nil {
		return User{}, err
	}
	if rec.Email, err = r.next("email"); err != nil {
		return User{}, err
	}
	if rec.Password, err = r.next("password"); err != nil {
		return User{}, err
	}
	u, err := rec.toUser()
	if err != nil {
		return User{}, corrupt(r.file, start, err, "invalid user")
	}
	return u, nil
}

func (r *legacyReader) account() (Account, error) {
	start := r.pos + 1
	var rec accountRecord
	var err error
	if rec.UserID, err = r.int64Field("user id"); err != nil {
		return Account{}, err
	}
	s, err := r.next("fines")
	if err != nil {
		return Account{}, err
	}
	fines, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || fines < 0 || fines != math.Trunc(fines) {
		return Account{}, corrupt(r.file, r.pos, err, "fines %q is not a whole non-negative amount", s)
	}
	rec.Fines = int64(fines)
	paid, err := r.int64Field("paid flag")
	if err != nil {
		return Account{}, err
	}
	if paid != 0 && paid != 1 {
		return Account{}, corrupt(r.file, r.pos, nil, "paid flag must be 0 or 1, got %d", paid)
	}
	rec.FinesPaid = paid == 1
	if rec.Borrowed, err = r.isbnList("borrowed"); err != nil {
		return Account{}, err
	}
	if rec.History, err = r.isbnList("history"); err != nil {
		return Account{}, err
	}
	a, err := rec.toAccount()
	if err != nil {
		return Account{}, corrupt(r.file, start, err, "invalid account")
	}
	return a, nil
}

func (r *legacyReader) isbnList(field string) ([]string, error) {
	n, err := r.int64Field(field + " count")
	if err != nil {
		return nil, err
	}
	if n < 0 || n > int64(len(r.lines)-r.pos) {
		return nil, corrupt(r.file, r.pos, nil, "%s count %d out of range", field, n)
	}
	out := make([]string, 0, n)
	for range n {
		isbn, err := r.next(field + " ISBN")
		if err != nil {
			return nil, err
		}
		out = append(out, isbn)
	}
	return out, nil
}
