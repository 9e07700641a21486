package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Totals summarizes income and expenses over a period.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Count    int
}

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	Category model.Category
	Total    decimal.Decimal
	Count    int
}

// MonthTotal is one point of a monthly series. Month is the first day of the month, UTC.
type MonthTotal struct {
	Month    time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// inRange reports whether t falls in [from, to). A zero bound is open.
func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// ComputeTotals sums txs dated in [from, to).
func ComputeTotals(txs []model.Transaction, from, to time.Time) Totals {
	tot := Totals{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		if !inRange(tx.Date, from, to) {
			continue
		}
		if tx.IsExpense {
			tot.Expenses = tot.Expenses.Add(tx.Amount)
		} else {
			tot.Income = tot.Income.Add(tx.Amount)
		}
		tot.Count++
	}
	tot.Net = tot.Income.Sub(tot.Expenses)
	return tot
}

// ComputeCategoryBreakdown groups expense (or income) txs in [from, to) by category,
// largest total first. Ties keep canonical category order.
func ComputeCategoryBreakdown(txs []model.Transaction, from, to time.Time, expenses bool) []CategoryTotal {
	byCat := make(map[model.Category]*CategoryTotal)
	for _, tx := range txs {
		if tx.IsExpense != expenses || !inRange(tx.Date, from, to) {
			continue
		}
		ct, ok := byCat[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category, Total: decimal.Zero}
			byCat[tx.Category] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category.Rank() < out[j].Category.Rank()
	})
	return out
}

// ComputeMonthlySeries returns the last months calendar months ending with the month of now,
// oldest first. Months without transactions are zero.
func ComputeMonthlySeries(txs []model.Transaction, months int, now time.Time) []MonthTotal {
	if months <= 0 {
		return nil
	}

	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	series := make([]MonthTotal, months)
	index := make(map[time.Time]int, months)
	for i := 0; i < months; i++ {
		m := current.AddDate(0, i-months+1, 0)
		series[i] = MonthTotal{Month: m, Income: decimal.Zero, Expenses: decimal.Zero}
		index[m] = i
	}

	for _, tx := range txs {
		d := tx.Date.UTC()
		i, ok := index[time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)]
		if !ok {
			continue
		}
		if tx.IsExpense {
			series[i].Expenses = series[i].Expenses.Add(tx.Amount)
		} else {
			series[i].Income = series[i].Income.Add(tx.Amount)
		}
	}
	return series
}

// Totals sums the ledger over [from, to). Zero bounds are open.
func (s *Service) Totals(from, to time.Time) Totals {
	return ComputeTotals(s.All(), from, to)
}

// CategoryBreakdown groups the ledger over [from, to) by category.
func (s *Service) CategoryBreakdown(from, to time.Time, expenses bool) []CategoryTotal {
	return ComputeCategoryBreakdown(s.All(), from, to, expenses)
}

// MonthlySeries returns per-month income and expenses for the last months months.
func (s *Service) MonthlySeries(months int, now time.Time) []MonthTotal {
	return ComputeMonthlySeries(s.All(), months, now)
}
