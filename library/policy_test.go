package library

import (
	"testing"
	"time"
)

func TestOverdueDays(t *testing.T) {
	due := t0.Add(15 * Day)
	cases := []struct {
		name string
		due  time.Time
		now  time.Time
		want int
	}{
		{"no due date", time.Time{}, t0, 0},
		{"before due", due, due.Add(-time.Hour), 0},
		{"at due", due, due, 0},
		{"partial day", due, due.Add(23 * time.Hour), 0},
		{"one day", due, due.Add(Day), 1},
		{"five and a half days", due, due.Add(5*Day + 12*time.Hour), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverdueDays(tc.due, tc.now); got != tc.want {
				t.Fatalf("OverdueDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRulesFor(t *testing.T) {
	if r := RulesFor(RoleStudent); !r.CanBorrow || r.MaxBooks != 3 || r.LoanPeriod != 15*Day || r.FineRate != 10 {
		t.Fatalf("student rules: %+v", r)
	}
	if r := RulesFor(RoleFaculty); !r.CanBorrow || r.MaxBooks != 5 || r.LoanPeriod != 30*Day || r.FineRate != 0 || r.MaxOverdueDays != 60 {
		t.Fatalf("faculty rules: %+v", r)
	}
	if r := RulesFor(RoleLibrarian); r.CanBorrow {
		t.Fatalf("librarians must not borrow")
	}
	if r := RulesFor(Role("Visitor")); r.CanBorrow {
		t.Fatalf("unknown roles must not borrow")
	}
}

func TestStudentPolicy(t *testing.T) {
	u := NewUser(1, "S", "", "pw", RoleStudent)
	p := PolicyFor(&u)
	b := NewBook("T", "A", "P", 2000, "1")

	if !p.Borrow(&b, t0) {
		t.Fatalf("borrow of available book failed")
	}
	if b.BorrowerID != 1 || b.DueDate != t0.Add(15*Day) {
		t.Fatalf("unexpected loan: %+v", b)
	}
	if p.Borrow(&b, t0) {
		t.Fatalf("borrowed a book that is already out")
	}

	other := PolicyFor(&User{ID: 2, Role: RoleStudent})
	if other.Return(&b, t0.Add(20*Day)) || b.Status != StatusBorrowed {
		t.Fatalf("another user returned the book")
	}

	if !p.Return(&b, t0.Add(16*Day)) {
		t.Fatalf("late return should report a fine")
	}
	if !b.IsAvailable() || b.BorrowerID != 0 || !b.DueDate.IsZero() {
		t.Fatalf("loan not cleared: %+v", b)
	}
}

func TestFacultyPolicyNeverFines(t *testing.T) {
	u := NewUser(2, "F", "", "pw", RoleFaculty)
	p := PolicyFor(&u)
	b := NewBook("T", "A", "P", 2000, "1")

	if !p.Borrow(&b, t0) {
		t.Fatalf("borrow failed")
	}
	if b.DueDate != t0.Add(30*Day) {
		t.Fatalf("due = %v, want %v", b.DueDate, t0.Add(30*Day))
	}
	if p.Return(&b, t0.Add(365*Day)) {
		t.Fatalf("faculty return reported a fine")
	}
	if !b.IsAvailable() {
		t.Fatalf("loan not cleared")
	}
}

func TestLibrarianPolicyIsInert(t *testing.T) {
	u := NewUser(3, "L", "", "pw", RoleLibrarian)
	p := PolicyFor(&u)
	b := NewBook("T", "A", "P", 2000, "1")

	if p.Borrow(&b, t0) || !b.IsAvailable() {
		t.Fatalf("librarian borrowed a book")
	}
	if p.Return(&b, t0) {
		t.Fatalf("librarian return reported a fine")
	}
}
