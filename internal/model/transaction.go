package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a committed ledger entry.
type Transaction struct {
	ID        string          // "YYYY-MM-NNN"
	Title     string
	Amount    decimal.Decimal // always a non-negative magnitude
	Category  Category
	Date      time.Time
	IsExpense bool
	Note      string
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.IsExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
