package library

import "time"

// Day is the unit used for loan periods, overdue counts and fine accrual.
const Day = 24 * time.Hour

// Rules are the per-role lending constants.
type Rules struct {
	CanBorrow      bool
	MaxBooks       int
	LoanPeriod     time.Duration
	FineRate       int64 // currency units per overdue day, 0 means never fined
	MaxOverdueDays int   // 0 means no overdue block
}

var rulesByRole = map[Role]Rules{
	RoleStudent: {
		CanBorrow:  true,
		MaxBooks:   3,
		LoanPeriod: 15 * Day,
		FineRate:   10,
	},
	RoleFaculty: {
		CanBorrow:      true,
		MaxBooks:       5,
		LoanPeriod:     30 * Day,
		MaxOverdueDays: 60,
	},
	RoleLibrarian: {},
}

// RulesFor returns the lending constants of a role. Unknown roles get the zero Rules,
// which cannot borrow.
func RulesFor(r Role) Rules { return rulesByRole[r] }

// OverdueDays returns the number of whole days now lies past due, or 0 when the
// loan is not overdue or has no due date.
func OverdueDays(due, now time.Time) int {
	if due.IsZero() || !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / Day)
}

// Policy applies one role's borrow and return transitions to a book.
// Limits, fines and overdue blocks are enforced by the Library before Borrow is called.
type Policy interface {
	// Borrow lends an Available book and reports whether it did.
	Borrow(b *Book, now time.Time) bool
	// Return releases a book held by the policy's user and reports whether a fine applies.
	Return(b *Book, now time.Time) bool
}

// PolicyFor selects the policy for u's role.
func PolicyFor(u *User) Policy {
	switch u.Role {
	case RoleStudent:
		return studentPolicy{userID: u.ID}
	case RoleFaculty:
		return facultyPolicy{userID: u.ID}
	default:
		return librarianPolicy{}
	}
}

type studentPolicy struct{ userID int64 }

func (p studentPolicy) Borrow(b *Book, now time.Time) bool {
	return lend(b, p.userID, now, rulesByRole[RoleStudent].LoanPeriod)
}

func (p studentPolicy) Return(b *Book, now time.Time) bool {
	if !b.IsBorrowedBy(p.userID) {
		return false
	}
	overdue := now.After(b.DueDate)
	b.clearLoan()
	return overdue
}

type facultyPolicy struct{ userID int64 }

func (p facultyPolicy) Borrow(b *Book, now time.Time) bool {
	return lend(b, p.userID, now, rulesByRole[RoleFaculty].LoanPeriod)
}

// Return clears the loan even when overdue; faculty are never fined.
func (p facultyPolicy) Return(b *Book, _ time.Time) bool {
	if b.IsBorrowedBy(p.userID) {
		b.clearLoan()
	}
	return false
}

// librarianPolicy never lends and never takes books back.
type librarianPolicy struct{}

func (librarianPolicy) Borrow(*Book, time.Time) bool { return false }
func (librarianPolicy) Return(*Book, time.Time) bool { return false }

func lend(b *Book, userID int64, now time.Time, period time.Duration) bool {
	if !b.IsAvailable() {
		return false
	}
	b.Status = StatusBorrowed
	b.BorrowerID = userID
	b.BorrowDate = now
	b.DueDate = now.Add(period)
	return true
}
