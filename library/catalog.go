package library

import (
	"fmt"
	"strings"
)

// ------------------ Book management (librarian only) ------------------

// AddBook adds a new Available book to the catalog. Any lending fields on b are ignored.
func (l *Library) AddBook(b Book) error {
	if err := l.requireLibrarian("add books"); err != nil {
		return err
	}
	return l.insertBook(b)
}

func (l *Library) insertBook(b Book) error {
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.clearLoan()
	if err := validate.Struct(bookToRecord(b)); err != nil {
		return fmt.Errorf("invalid book: %w", err)
	}
	if _, exists := l.books[b.ISBN]; exists {
		return fmt.Errorf("%w: book with ISBN %s", ErrDuplicate, b.ISBN)
	}
	l.books[b.ISBN] = &b
	return nil
}

// UpdateBook replaces the descriptive fields (title, author, publisher, year) of an
// existing book. Lending state is kept as is.
func (l *Library) UpdateBook(b Book) error {
	if err := l.requireLibrarian("update books"); err != nil {
		return err
	}
	cur, ok := l.books[b.ISBN]
	if !ok {
		return unknownBook(b.ISBN)
	}
	next := *cur
	next.Title, next.Author, next.Publisher, next.Year = b.Title, b.Author, b.Publisher, b.Year
	if err := validate.Struct(bookToRecord(next)); err != nil {
		return fmt.Errorf("invalid book: %w", err)
	}
	*cur = next
	return nil
}

// RemoveBook deletes a book from the catalog even if it is on loan. A borrowed book is
// dropped from its borrower's current loans; their history keeps it.
func (l *Library) RemoveBook(isbn string) error {
	if err := l.requireLibrarian("remove books"); err != nil {
		return err
	}
	b, ok := l.books[isbn]
	if !ok {
		return unknownBook(isbn)
	}
	if b.Status == StatusBorrowed {
		if acc, ok := l.accounts[b.BorrowerID]; ok {
			acc.RemoveBorrowedBook(isbn)
		}
		l.log.Warn("removed a book that was on loan", "isbn", isbn, "borrower", b.BorrowerID)
	}
	delete(l.books, isbn)
	return nil
}

// ------------------ User management (librarian only) ------------------

// AddUser registers u and opens an empty account for it. The password is stored
// according to the configured PasswordScheme.
func (l *Library) AddUser(u User) error {
	if err := l.requireLibrarian("add users"); err != nil {
		return err
	}
	return l.insertUser(u)
}

func (l *Library) insertUser(u User) error {
	if err := validate.Struct(userToRecord(u)); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if _, exists := l.users[u.ID]; exists {
		return fmt.Errorf("%w: user with ID %d", ErrDuplicate, u.ID)
	}
	hashed, err := l.passwords.hash(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	l.users[u.ID] = &u
	l.accounts[u.ID] = NewAccount(u.ID)
	return nil
}

// RemoveUser deletes a user together with their account. Books they still hold become
// Available again. The logged-in user cannot remove themselves.
func (l *Library) RemoveUser(id int64) error {
	if err := l.requireLibrarian("remove users"); err != nil {
		return err
	}
	if _, ok := l.users[id]; !ok {
		return unknownUser(id)
	}
	if id == l.session {
		return denied("cannot remove the logged-in user")
	}
	if acc, ok := l.accounts[id]; ok {
		for _, isbn := range acc.Borrowed {
			if b, ok := l.books[isbn]; ok && b.IsBorrowedBy(id) {
				b.clearLoan()
				l.log.Warn("released loan of removed user", "user", id, "isbn", isbn)
			}
		}
	}
	delete(l.users, id)
	delete(l.accounts, id)
	return nil
}

// Users lists all users ordered by id.
func (l *Library) Users() ([]User, error) {
	if err := l.requireLibrarian("list users"); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(l.users))
	for _, id := range sortedKeys(l.users) {
		out = append(out, *l.users[id])
	}
	return out, nil
}
