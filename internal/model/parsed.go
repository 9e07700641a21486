package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedTransaction is an import candidate produced from one statement upload.
// It lives only for the duration of a review session and is never persisted.
type ParsedTransaction struct {
	ID         string
	IsSelected bool
	Date       time.Time
	Title      string
	Amount     decimal.Decimal // magnitude; direction is carried by IsExpense
	IsExpense  bool
	Category   Category
	BankName   string // empty when the service did not detect a bank
	Details    string // raw merchant/description text
}

// ToTransaction converts the candidate into a new ledger entry. The ledger assigns the ID.
func (p ParsedTransaction) ToTransaction() Transaction {
	return Transaction{
		Title:     p.Title,
		Amount:    p.Amount,
		Category:  p.Category,
		Date:      p.Date,
		IsExpense: p.IsExpense,
	}
}
