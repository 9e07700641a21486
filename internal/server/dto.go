package server

import (
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/review"
)

const dateFormat = "2006-01-02"

// breakdownLimit is how many category chips the summary shows before "+N more".
const breakdownLimit = 4

type candidateResponse struct {
	ID        string `json:"id"`
	Selected  bool   `json:"selected"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	IsExpense bool   `json:"is_expense"`
	Category  string `json:"category"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	Bank      string `json:"bank,omitempty"`
	Details   string `json:"details,omitempty"`
}

type categoryCountResponse struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Color    string `json:"color"`
}

type sessionResponse struct {
	State            string                  `json:"state"`
	Filter           string                  `json:"filter"`
	DetectedBank     string                  `json:"detected_bank,omitempty"`
	Total            int                     `json:"total"`
	Selected         int                     `json:"selected"`
	SelectedIncome   string                  `json:"selected_income"`
	SelectedExpenses string                  `json:"selected_expenses"`
	Categories       []categoryCountResponse `json:"categories"`
	Top              []categoryCountResponse `json:"top"`
	More             int                     `json:"more"`
}

type transactionResponse struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	IsExpense bool   `json:"is_expense"`
	Category  string `json:"category"`
	Note      string `json:"note,omitempty"`
}

type totalsResponse struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Net      string `json:"net"`
	Count    int    `json:"count"`
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
	Count    int    `json:"count"`
}

type monthResponse struct {
	Month    string `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

type ledgerSummaryResponse struct {
	Month      totalsResponse          `json:"month"`
	AllTime    totalsResponse          `json:"all_time"`
	Categories []categoryTotalResponse `json:"categories"`
	Series     []monthResponse         `json:"series"`
}

func toCandidateResponses(cands []model.ParsedTransaction) []candidateResponse {
	out := make([]candidateResponse, len(cands))
	for i, c := range cands {
		out[i] = candidateResponse{
			ID:        c.ID,
			Selected:  c.IsSelected,
			Date:      c.Date.Format(dateFormat),
			Title:     c.Title,
			Amount:    c.Amount.StringFixed(2),
			IsExpense: c.IsExpense,
			Category:  string(c.Category),
			Icon:      c.Category.Icon(),
			Color:     c.Category.Color(),
			Bank:      c.BankName,
			Details:   c.Details,
		}
	}
	return out
}

func toCategoryCounts(counts []review.CategoryCount) []categoryCountResponse {
	out := make([]categoryCountResponse, len(counts))
	for i, c := range counts {
		out[i] = categoryCountResponse{Category: string(c.Category), Count: c.Count, Color: c.Color}
	}
	return out
}

func toSessionResponse(sum review.Summary, b review.Breakdown) sessionResponse {
	return sessionResponse{
		State:            string(sum.State),
		Filter:           sum.Filter,
		DetectedBank:     sum.DetectedBank,
		Total:            sum.Total,
		Selected:         sum.Selected,
		SelectedIncome:   sum.SelectedIncome.StringFixed(2),
		SelectedExpenses: sum.SelectedExpenses.StringFixed(2),
		Categories:       toCategoryCounts(sum.Categories),
		Top:              toCategoryCounts(b.Top),
		More:             b.More,
	}
}

func toTransactionResponses(txs []model.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = transactionResponse{
			ID:        tx.ID,
			Date:      tx.Date.Format(dateFormat),
			Title:     tx.Title,
			Amount:    tx.Amount.StringFixed(2),
			IsExpense: tx.IsExpense,
			Category:  string(tx.Category),
			Note:      tx.Note,
		}
	}
	return out
}

func toTotalsResponse(t ledger.Totals) totalsResponse {
	return totalsResponse{
		Income:   t.Income.StringFixed(2),
		Expenses: t.Expenses.StringFixed(2),
		Net:      t.Net.StringFixed(2),
		Count:    t.Count,
	}
}
