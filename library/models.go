package library

import (
	"fmt"
	"time"
)

// BookStatus is the lending state of a single physical book.
type BookStatus string

const (
	StatusAvailable BookStatus = "Available"
	StatusBorrowed  BookStatus = "Borrowed"
	StatusReserved  BookStatus = "Reserved"
)

// ParseBookStatus accepts the exact status tags used in the catalog files.
func ParseBookStatus(s string) (BookStatus, error) {
	switch st := BookStatus(s); st {
	case StatusAvailable, StatusBorrowed, StatusReserved:
		return st, nil
	}
	return "", fmt.Errorf("unknown book status %q", s)
}

// Book represents one physical copy in the catalog and its current lending state.
// It carries no rules of its own; role policies and the Library drive its transitions.
type Book struct {
	ISBN       string     `json:"isbn"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Publisher  string     `json:"publisher"`
	Year       int        `json:"year"`
	Status     BookStatus `json:"status"`
	BorrowerID int64      `json:"borrower_id"` // 0 when nobody holds the book
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
}

// NewBook returns an Available book with no loan attached.
func NewBook(title, author, publisher string, year int, isbn string) Book {
	return Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Year:      year,
		Status:    StatusAvailable,
	}
}

// IsAvailable reports whether the book can be lent right now.
func (b *Book) IsAvailable() bool { return b.Status == StatusAvailable }

// IsBorrowedBy reports whether userID currently holds the book.
func (b *Book) IsBorrowedBy(userID int64) bool {
	return b.Status == StatusBorrowed && b.BorrowerID == userID
}

// clearLoan resets the book to Available with all loan fields zeroed.
func (b *Book) clearLoan() {
	b.Status = StatusAvailable
	b.BorrowerID = 0
	b.BorrowDate = time.Time{}
	b.DueDate = time.Time{}
}

// loanConsistent checks Borrowed <=> borrower set and due date set.
func (b *Book) loanConsistent() bool {
	lent := b.BorrowerID != 0 && !b.DueDate.IsZero()
	return (b.Status == StatusBorrowed) == lent
}

// Role selects which lending policy governs a user. It never changes after creation.
type Role string

const (
	RoleStudent   Role = "Student"
	RoleFaculty   Role = "Faculty"
	RoleLibrarian Role = "Librarian"
)

// ParseRole accepts the role tags written as the first line of a user record.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleFaculty, RoleLibrarian:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a registered library user.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	// Password holds plaintext under the plain scheme and a bcrypt hash under the bcrypt scheme.
	Password string `json:"-"`
	Role     Role   `json:"role"`
}

// NewUser builds a user of the given role.
func NewUser(id int64, name, email, password string, role Role) User {
	return User{ID: id, Name: name, Email: email, Password: password, Role: role}
}
