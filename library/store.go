package library

import (
	"errors"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Store persists the whole library state. Loads and saves are wholesale; there are no
// incremental writes.
type Store interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
	Close() error
}

// Snapshot is the complete persisted state.
type Snapshot struct {
	Books        []Book
	Users        []User
	Accounts     []Account
	Transactions []Transaction
}

// SchemaVersion is the record schema version written by both stores.
const SchemaVersion = 1

var validate = validator.New()

// Record shapes shared by the file and SQLite stores. Times are Unix seconds, 0 for none.

type bookRecord struct {
	ISBN       string `json:"isbn" db:"isbn" validate:"required,max=32,printascii"`
	Title      string `json:"title" db:"title" validate:"required"`
	Author     string `json:"author" db:"author" validate:"required"`
	Publisher  string `json:"publisher" db:"publisher"`
	Year       int    `json:"year" db:"year" validate:"gte=0,lte=9999"`
	Status     string `json:"status" db:"status" validate:"oneof=Available Borrowed Reserved"`
	BorrowerID int64  `json:"borrower_id" db:"borrower_id" validate:"gte=0"`
	BorrowDate int64  `json:"borrow_date" db:"borrow_date" validate:"gte=0"`
	DueDate    int64  `json:"due_date" db:"due_date" validate:"gte=0"`
}

type userRecord struct {
	ID       int64  `json:"id" db:"id" validate:"gt=0"`
	Role     string `json:"role" db:"role" validate:"oneof=Student Faculty Librarian"`
	Name     string `json:"name" db:"name" validate:"required"`
	Email    string `json:"email" db:"email" validate:"omitempty,email"`
	Password string `json:"password" db:"password" validate:"required"`
}

type accountRecord struct {
	UserID    int64    `json:"user_id" db:"user_id" validate:"gt=0"`
	Fines     int64    `json:"fines" db:"fines" validate:"gte=0"`
	FinesPaid bool     `json:"fines_paid" db:"fines_paid"`
	Borrowed  []string `json:"borrowed" db:"-" validate:"dive,required"`
	History   []string `json:"history" db:"-" validate:"dive,required"`
}

type transactionRecord struct {
	ID     string `json:"id" db:"id" validate:"required,uuid"`
	Kind   string `json:"kind" db:"kind" validate:"oneof=borrow return fine payment"`
	UserID int64  `json:"user_id" db:"user_id" validate:"gt=0"`
	ISBN   string `json:"isbn,omitempty" db:"isbn"`
	Amount int64  `json:"amount,omitempty" db:"amount" validate:"gte=0"`
	At     int64  `json:"at" db:"at" validate:"gt=0"`
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func bookToRecord(b Book) bookRecord {
	return bookRecord{
		ISBN:       b.ISBN,
		Title:      b.Title,
		Author:     b.Author,
		Publisher:  b.Publisher,
		Year:       b.Year,
		Status:     string(b.Status),
		BorrowerID: b.BorrowerID,
		BorrowDate: unixOrZero(b.BorrowDate),
		DueDate:    unixOrZero(b.DueDate),
	}
}

func (r bookRecord) toBook() (Book, error) {
	if err := validate.Struct(r); err != nil {
		return Book{}, err
	}
	b := Book{
		ISBN:       r.ISBN,
		Title:      r.Title,
		Author:     r.Author,
		Publisher:  r.Publisher,
		Year:       r.Year,
		Status:     BookStatus(r.Status),
		BorrowerID: r.BorrowerID,
		BorrowDate: timeOrZero(r.BorrowDate),
		DueDate:    timeOrZero(r.DueDate),
	}
	if !b.loanConsistent() {
		return Book{}, errInconsistentLoan
	}
	return b, nil
}

func userToRecord(u User) userRecord {
	return userRecord{ID: u.ID, Role: string(u.Role), Name: u.Name, Email: u.Email, Password: u.Password}
}

func (r userRecord) toUser() (User, error) {
	if err := validate.Struct(r); err != nil {
		return User{}, err
	}
	return User{ID: r.ID, Name: r.Name, Email: r.Email, Password: r.Password, Role: Role(r.Role)}, nil
}

func accountToRecord(a Account) accountRecord {
	return accountRecord{
		UserID:    a.UserID,
		Fines:     a.Fines,
		FinesPaid: a.FinesPaid,
		Borrowed:  slices.Clone(a.Borrowed),
		History:   slices.Clone(a.History),
	}
}

func (r accountRecord) toAccount() (Account, error) {
	if err := validate.Struct(r); err != nil {
		return Account{}, err
	}
	if r.FinesPaid != (r.Fines == 0) {
		return Account{}, errPaidFlagMismatch
	}
	return Account{
		UserID:    r.UserID,
		Fines:     r.Fines,
		FinesPaid: r.FinesPaid,
		Borrowed:  cloneISBNs(r.Borrowed),
		History:   cloneISBNs(r.History),
	}, nil
}

func transactionToRecord(t Transaction) transactionRecord {
	return transactionRecord{
		ID:     t.ID.String(),
		Kind:   string(t.Kind),
		UserID: t.UserID,
		ISBN:   t.ISBN,
		Amount: t.Amount,
		At:     unixOrZero(t.At),
	}
}

func (r transactionRecord) toTransaction() (Transaction, error) {
	if err := validate.Struct(r); err != nil {
		return Transaction{}, err
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:     id,
		Kind:   TransactionKind(r.Kind),
		UserID: r.UserID,
		ISBN:   r.ISBN,
		Amount: r.Amount,
		At:     timeOrZero(r.At),
	}, nil
}

var (
	errInconsistentLoan = errors.New("status must be Borrowed exactly when borrower and due date are set")
	errPaidFlagMismatch = errors.New("fines_paid must be true exactly when fines is 0")
)

// Check verifies the cross-entity invariants between books, users and accounts.
func (s *Snapshot) Check() error {
	const file = "snapshot"
	users := make(map[int64]bool, len(s.Users))
	for i, u := range s.Users {
		if users[u.ID] {
			return corrupt(file, i+1, nil, "duplicate user id %d", u.ID)
		}
		users[u.ID] = true
	}
	accounts := make(map[int64]*Account, len(s.Accounts))
	for i := range s.Accounts {
		a := &s.Accounts[i]
		if !users[a.UserID] {
			return corrupt(file, i+1, nil, "account for unknown user %d", a.UserID)
		}
		if accounts[a.UserID] != nil {
			return corrupt(file, i+1, nil, "duplicate account for user %d", a.UserID)
		}
		if a.FinesPaid != (a.Fines == 0) || a.Fines < 0 {
			return corrupt(file, i+1, errPaidFlagMismatch, "account %d", a.UserID)
		}
		accounts[a.UserID] = a
	}
	books := make(map[string]*Book, len(s.Books))
	for i := range s.Books {
		b := &s.Books[i]
		if books[b.ISBN] != nil {
			return corrupt(file, i+1, nil, "duplicate ISBN %s", b.ISBN)
		}
		if !b.loanConsistent() {
			return corrupt(file, i+1, errInconsistentLoan, "book %s", b.ISBN)
		}
		if b.Status == StatusBorrowed {
			acc := accounts[b.BorrowerID]
			if acc == nil || !acc.HasBorrowed(b.ISBN) {
				return corrupt(file, i+1, nil, "book %s borrowed by %d but not on their account", b.ISBN, b.BorrowerID)
			}
		}
		books[b.ISBN] = b
	}
	for i, a := range s.Accounts {
		seen := make(map[string]bool, len(a.Borrowed))
		for _, isbn := range a.Borrowed {
			if seen[isbn] {
				return corrupt(file, i+1, nil, "account %d lists %s twice", a.UserID, isbn)
			}
			seen[isbn] = true
			if b := books[isbn]; b == nil || !b.IsBorrowedBy(a.UserID) {
				return corrupt(file, i+1, nil, "account %d lists %s which it does not hold", a.UserID, isbn)
			}
			if !slices.Contains(a.History, isbn) {
				return corrupt(file, i+1, nil, "account %d: %s missing from history", a.UserID, isbn)
			}
		}
	}
	return nil
}
