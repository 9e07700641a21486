package importer

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

const (
	maxTitleRunes = 80
	fallbackTitle = "Transaction"
)

// classifyResponse is the body of POST /classify. Records are kept raw so a
// single malformed record can be dropped without failing the whole batch.
type classifyResponse struct {
	Bank         *string           `json:"bank"`
	Transactions []json.RawMessage `json:"transactions"`
	Error        *string           `json:"error"`
}

// rawRecord is one transaction as sent by the classifier. Every field is optional.
type rawRecord struct {
	Date     *string         `json:"date"`
	Amount   json.RawMessage `json:"amount"`
	Merchant *string         `json:"merchant"`
	Details  *string         `json:"details"`
	Category *string         `json:"category"`
	Bank     *string         `json:"bank"`
}

// present returns the trimmed value of s, or "" when s is nil or blank.
func present(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// parseAmount accepts only JSON numbers.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// toCandidate converts one raw record. ok is false when the record must be dropped.
func toCandidate(raw json.RawMessage, responseBank string) (model.ParsedTransaction, bool) {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.ParsedTransaction{}, false
	}
	if rec.Date == nil {
		return model.ParsedTransaction{}, false
	}
	date, ok := parseDate(*rec.Date)
	if !ok {
		return model.ParsedTransaction{}, false
	}
	amount, ok := parseAmount(rec.Amount)
	if !ok {
		return model.ParsedTransaction{}, false
	}

	merchant, details := present(rec.Merchant), present(rec.Details)
	title := merchant
	if title == "" {
		title = details
	}
	if title == "" {
		title = fallbackTitle
	}

	bank := present(rec.Bank)
	if bank == "" {
		bank = responseBank
	}

	desc := details
	if desc == "" {
		desc = merchant
	}

	return model.ParsedTransaction{
		ID:         id.NewCandidateID(),
		IsSelected: true,
		Date:       date,
		Title:      truncateRunes(title, maxTitleRunes),
		Amount:     amount.Abs(),
		IsExpense:  amount.IsNegative(),
		Category:   category.Normalize(rec.Category),
		BankName:   bank,
		Details:    desc,
	}, true
}
