package ledger

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	ID          string
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Field, e.ID, e.Description)
}

// Validate checks every transaction and the set as a whole.
func Validate(txs []model.Transaction) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.ID == "" {
			errs = append(errs, ValidationError{Field: "id", Description: "missing id"})
		} else if seen[tx.ID] {
			errs = append(errs, ValidationError{ID: tx.ID, Field: "id", Description: "duplicate id"})
		}
		seen[tx.ID] = true

		if strings.TrimSpace(tx.Title) == "" {
			errs = append(errs, ValidationError{ID: tx.ID, Field: "title", Description: "title is empty"})
		}

		if tx.Amount.IsNegative() {
			errs = append(errs, ValidationError{
				ID:          tx.ID,
				Field:       "amount",
				Description: fmt.Sprintf("amount %s is negative", tx.Amount),
			})
		}

		if !tx.Category.Valid() {
			errs = append(errs, ValidationError{
				ID:          tx.ID,
				Field:       "category",
				Description: fmt.Sprintf("unknown category %q", tx.Category),
			})
		}

		if tx.Date.IsZero() {
			errs = append(errs, ValidationError{ID: tx.ID, Field: "date", Description: "date is missing"})
		}
	}

	return errs
}

func joinValidation(verrs []ValidationError) error {
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
