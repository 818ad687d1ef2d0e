package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionKind names one lending step recorded in the journal.
type TransactionKind string

const (
	TxBorrow  TransactionKind = "borrow"
	TxReturn  TransactionKind = "return"
	TxFine    TransactionKind = "fine"
	TxPayment TransactionKind = "payment"
)

// ParseTransactionKind accepts the stored kind tags.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(s); k {
	case TxBorrow, TxReturn, TxFine, TxPayment:
		return k, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Transaction is one journal entry. Amount is set for fines and payments only.
type Transaction struct {
	ID     uuid.UUID       `json:"id"`
	Kind   TransactionKind `json:"kind"`
	UserID int64           `json:"user_id"`
	ISBN   string          `json:"isbn,omitempty"`
	Amount int64           `json:"amount,omitempty"`
	At     time.Time       `json:"at"`
}

func (l *Library) record(kind TransactionKind, userID int64, isbn string, amount int64, at time.Time) {
	l.journal = append(l.journal, Transaction{
		ID:     uuid.New(),
		Kind:   kind,
		UserID: userID,
		ISBN:   isbn,
		Amount: amount,
		At:     at,
	})
}

// Transactions lists journal entries for userID in the order they happened.
// A librarian may pass 0 to list every entry; other users may only list their own.
func (l *Library) Transactions(userID int64) ([]Transaction, error) {
	if err := l.requireSelfOrLibrarian(userID, "view transactions"); err != nil {
		return nil, err
	}
	var out []Transaction
	for _, tx := range l.journal {
		if userID == 0 || tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}
