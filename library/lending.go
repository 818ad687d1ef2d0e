package library

import (
	"fmt"
	"time"
)

// BorrowBook lends the book to userID after checking, in order: the references exist,
// the book is Available, the role may borrow, and the role's limits allow another loan.
// A denied borrow changes nothing.
func (l *Library) BorrowBook(userID int64, isbn string) error {
	user, book, account, err := l.resolve(userID, isbn)
	if err != nil {
		return err
	}
	if !book.IsAvailable() {
		return denied("book %s is not available for borrowing (status %s)", isbn, book.Status)
	}

	now := l.now()
	rules := RulesFor(user.Role)
	switch user.Role {
	case RoleStudent:
		if account.BorrowedCount() >= rules.MaxBooks {
			return denied("students may borrow at most %d books", rules.MaxBooks)
		}
		if account.HasOutstandingFines() {
			return denied("please clear your outstanding fines (%d) before borrowing new books", account.Fines)
		}
	case RoleFaculty:
		if account.BorrowedCount() >= rules.MaxBooks {
			return denied("faculty may borrow at most %d books", rules.MaxBooks)
		}
		if days := l.worstOverdue(account, now); days > rules.MaxOverdueDays {
			return denied("a current loan is overdue by %d days (limit %d); return it first", days, rules.MaxOverdueDays)
		}
	default:
		return denied("%s users cannot borrow books", user.Role)
	}

	if !PolicyFor(user).Borrow(book, now) {
		return denied("book %s is not available for borrowing", isbn)
	}
	account.AddBorrowedBook(isbn)
	account.AddToBorrowHistory(isbn)
	l.record(TxBorrow, userID, isbn, 0, now)
	l.log.Debug("book borrowed", "user", userID, "isbn", isbn, "due", book.DueDate)
	return nil
}

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	ISBN        string
	ReturnedAt  time.Time
	DueDate     time.Time
	OverdueDays int
	Fine        int64
}

// ReturnBook takes the book back from userID. It fails without changing anything when
// the book is not currently borrowed by that user. Students returning late are fined
// OverdueDays x FineRate; faculty are never fined.
func (l *Library) ReturnBook(userID int64, isbn string) (ReturnReceipt, error) {
	user, book, account, err := l.resolve(userID, isbn)
	if err != nil {
		return ReturnReceipt{}, err
	}
	if !RulesFor(user.Role).CanBorrow {
		return ReturnReceipt{}, denied("%s users cannot return books", user.Role)
	}
	if !book.IsBorrowedBy(userID) {
		return ReturnReceipt{}, denied("book %s was not borrowed by user %d", isbn, userID)
	}

	now := l.now()
	due := book.DueDate
	fineApplicable := PolicyFor(user).Return(book, now)

	account.RemoveBorrowedBook(isbn)
	account.AddToBorrowHistory(isbn)
	book.clearLoan()
	l.record(TxReturn, userID, isbn, 0, now)

	receipt := ReturnReceipt{ISBN: isbn, ReturnedAt: now, DueDate: due, OverdueDays: OverdueDays(due, now)}
	if fineApplicable && user.Role == RoleStudent {
		receipt.Fine = int64(receipt.OverdueDays) * RulesFor(RoleStudent).FineRate
		if receipt.Fine > 0 {
			account.AddFine(receipt.Fine)
			l.record(TxFine, userID, isbn, receipt.Fine, now)
		}
	}
	l.log.Debug("book returned", "user", userID, "isbn", isbn, "overdue_days", receipt.OverdueDays, "fine", receipt.Fine)
	return receipt, nil
}

// OverdueLoan is one borrowed book past its due date.
type OverdueLoan struct {
	Book        Book
	BorrowerID  int64
	OverdueDays int
}

// CheckOverdueBooks lists every borrowed book at least one whole day past due,
// ordered by ISBN. It does not change any state.
func (l *Library) CheckOverdueBooks() []OverdueLoan {
	now := l.now()
	var out []OverdueLoan
	for _, isbn := range sortedKeys(l.books) {
		b := l.books[isbn]
		if b.Status != StatusBorrowed {
			continue
		}
		if days := OverdueDays(b.DueDate, now); days > 0 {
			out = append(out, OverdueLoan{Book: *b, BorrowerID: b.BorrowerID, OverdueDays: days})
		}
	}
	return out
}

// FineAssessment is the fine a current overdue loan would incur if returned now.
type FineAssessment struct {
	UserID      int64
	ISBN        string
	OverdueDays int
	Amount      int64
}

// CalculateFines projects the fines accruing on students' current overdue loans.
// Fines are only charged when a book is returned, so this never touches balances and
// calling it any number of times is safe.
func (l *Library) CalculateFines() []FineAssessment {
	now := l.now()
	var out []FineAssessment
	for _, id := range sortedKeys(l.accounts) {
		user, ok := l.users[id]
		if !ok || user.Role != RoleStudent {
			continue
		}
		rate := RulesFor(user.Role).FineRate
		for _, isbn := range l.accounts[id].Borrowed {
			b, ok := l.books[isbn]
			if !ok || !b.IsBorrowedBy(id) {
				continue
			}
			if days := OverdueDays(b.DueDate, now); days > 0 {
				out = append(out, FineAssessment{UserID: id, ISBN: isbn, OverdueDays: days, Amount: int64(days) * rate})
			}
		}
	}
	return out
}

// PayFines settles userID's whole balance and returns the amount paid. Only a librarian
// or the account owner may settle.
func (l *Library) PayFines(userID int64) (int64, error) {
	if err := l.requireSelfOrLibrarian(userID, "settle fines for other users"); err != nil {
		return 0, err
	}
	account, ok := l.accounts[userID]
	if !ok {
		return 0, fmt.Errorf("%w: account for user %d not found", ErrInvalidReference, userID)
	}
	paid := account.PayFines()
	if paid > 0 {
		l.record(TxPayment, userID, "", paid, l.now())
	}
	l.log.Info("fines settled", "user", userID, "amount", paid)
	return paid, nil
}

// worstOverdue returns the largest overdue-day count among the account's current loans.
func (l *Library) worstOverdue(account *Account, now time.Time) int {
	worst := 0
	for _, isbn := range account.Borrowed {
		if b, ok := l.books[isbn]; ok && b.IsBorrowedBy(account.UserID) {
			worst = max(worst, OverdueDays(b.DueDate, now))
		}
	}
	return worst
}
