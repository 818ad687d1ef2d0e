package library

import "slices"

// Account is the per-user ledger of current loans, borrowing history and fines.
// It does not check ISBNs against the catalog.
type Account struct {
	UserID    int64    `json:"user_id"`
	Borrowed  []string `json:"borrowed"` // insertion-ordered, no duplicates
	History   []string `json:"history"`  // every ISBN ever borrowed, once each
	Fines     int64    `json:"fines"`
	FinesPaid bool     `json:"fines_paid"` // true iff Fines == 0
}

// NewAccount returns an empty account in good standing.
func NewAccount(userID int64) *Account {
	return &Account{UserID: userID, FinesPaid: true}
}

// AddBorrowedBook records a current loan. Adding an ISBN already held is a no-op.
func (a *Account) AddBorrowedBook(isbn string) {
	if a.HasBorrowed(isbn) {
		return
	}
	a.Borrowed = append(a.Borrowed, isbn)
}

// RemoveBorrowedBook deletes the first occurrence of isbn and reports whether one was found.
func (a *Account) RemoveBorrowedBook(isbn string) bool {
	i := slices.Index(a.Borrowed, isbn)
	if i < 0 {
		return false
	}
	a.Borrowed = slices.Delete(a.Borrowed, i, i+1)
	return true
}

// AddToBorrowHistory appends isbn unless it is already in the history.
func (a *Account) AddToBorrowHistory(isbn string) {
	if slices.Contains(a.History, isbn) {
		return
	}
	a.History = append(a.History, isbn)
}

// AddFine adds a positive amount to the balance. Non-positive amounts are ignored so
// the balance never goes negative.
func (a *Account) AddFine(amount int64) {
	if amount <= 0 {
		return
	}
	a.Fines += amount
	a.FinesPaid = false
}

// PayFines settles the whole balance and returns the amount that was outstanding.
func (a *Account) PayFines() int64 {
	paid := a.Fines
	a.Fines = 0
	a.FinesPaid = true
	return paid
}

// HasBorrowed reports whether isbn is a current loan.
func (a *Account) HasBorrowed(isbn string) bool { return slices.Contains(a.Borrowed, isbn) }

// BorrowedCount is the number of current loans.
func (a *Account) BorrowedCount() int { return len(a.Borrowed) }

// HasOutstandingFines reports a positive balance.
func (a *Account) HasOutstandingFines() bool { return a.Fines > 0 }

func (a *Account) clone() Account {
	c := *a
	c.Borrowed = cloneISBNs(a.Borrowed)
	c.History = cloneISBNs(a.History)
	return c
}

// cloneISBNs copies an ISBN list, normalising empty lists to nil.
func cloneISBNs(isbns []string) []string {
	if len(isbns) == 0 {
		return nil
	}
	return slices.Clone(isbns)
}
