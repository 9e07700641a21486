package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/model"
)

func newLedgerCommand(dataDir *string) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and edit committed transactions",
	}
	ledgerCmd.AddCommand(newLedgerListCommand(dataDir))
	ledgerCmd.AddCommand(newLedgerSummaryCommand(dataDir))
	ledgerCmd.AddCommand(newLedgerAddCommand(dataDir))
	ledgerCmd.AddCommand(newLedgerDeleteCommand(dataDir))
	return ledgerCmd
}

func newLedgerListCommand(dataDir *string) *cobra.Command {
	var month, label string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.close()
			return runLedgerList(cmd.OutOrStdout(), a, month, label)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only show this month (YYYY-MM)")
	cmd.Flags().StringVar(&label, "category", "", "only show this category")

	return cmd
}

func runLedgerList(w io.Writer, a *app, month, label string) error {
	var from, to time.Time
	if month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			return fmt.Errorf("invalid --month %q, want YYYY-MM", month)
		}
		from, to = start, start.AddDate(0, 1, 0)
	}
	var cat model.Category
	if label != "" {
		c, ok := category.Lookup(label)
		if !ok {
			return fmt.Errorf("unknown category %q", label)
		}
		cat = c
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tTITLE")
	count := 0
	for _, tx := range a.ledger.All() {
		if month != "" && (tx.Date.Before(from) || !tx.Date.Before(to)) {
			continue
		}
		if cat != "" && tx.Category != cat {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date.Format("2006-01-02"), tx.Signed().StringFixed(2), tx.Category, tx.Title)
		count++
	}
	tw.Flush()
	fmt.Fprintf(w, "%d transactions\n", count)
	return nil
}

func newLedgerSummaryCommand(dataDir *string) *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals, category breakdown and monthly series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.close()
			return runLedgerSummary(cmd.OutOrStdout(), a, months, time.Now())
		},
	}

	cmd.Flags().IntVar(&months, "months", 6, "number of months in the series")

	return cmd
}

func runLedgerSummary(w io.Writer, a *app, months int, now time.Time) error {
	if months < 1 {
		return fmt.Errorf("--months must be at least 1")
	}
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	all := a.ledger.Totals(time.Time{}, time.Time{})
	cur := a.ledger.Totals(monthStart, monthEnd)

	fmt.Fprintf(w, "All time: income %s, expenses %s, net %s (%d transactions)\n",
		all.Income.StringFixed(2), all.Expenses.StringFixed(2), all.Net.StringFixed(2), all.Count)
	fmt.Fprintf(w, "%s: income %s, expenses %s, net %s\n",
		monthStart.Format("January 2006"), cur.Income.StringFixed(2), cur.Expenses.StringFixed(2), cur.Net.StringFixed(2))

	breakdown := a.ledger.CategoryBreakdown(monthStart, monthEnd, true)
	if len(breakdown) > 0 {
		fmt.Fprintln(w, "\nExpenses by category:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, ct := range breakdown {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
		}
		tw.Flush()
	}

	fmt.Fprintln(w, "\nMonthly:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  MONTH\tINCOME\tEXPENSES")
	for _, m := range a.ledger.MonthlySeries(months, now) {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Month.Format("2006-01"), m.Income.StringFixed(2), m.Expenses.StringFixed(2))
	}
	return tw.Flush()
}

type addParams struct {
	title   string
	amount  string
	label   string
	date    string
	expense bool
	note    string
}

func newLedgerAddCommand(dataDir *string) *cobra.Command {
	var p addParams

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.close()
			return runLedgerAdd(cmd.Context(), cmd.OutOrStdout(), a, p)
		},
	}

	cmd.Flags().StringVar(&p.title, "title", "", "title (required)")
	cmd.Flags().StringVar(&p.amount, "amount", "", "amount; a leading minus marks an expense (required)")
	cmd.Flags().StringVar(&p.label, "category", string(model.CategoryOther), "category")
	cmd.Flags().StringVar(&p.date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&p.expense, "expense", false, "record as an expense")
	cmd.Flags().StringVar(&p.note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runLedgerAdd(ctx context.Context, w io.Writer, a *app, p addParams) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(p.amount))
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", p.amount, err)
	}

	cat, ok := category.Lookup(p.label)
	if !ok {
		return fmt.Errorf("unknown category %q", p.label)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if p.date != "" {
		date, err = time.Parse("2006-01-02", p.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", p.date)
		}
	}

	tx, err := a.ledger.Append(ctx, model.Transaction{
		Title:     strings.TrimSpace(p.title),
		Amount:    amount.Abs(),
		Category:  cat,
		Date:      date,
		IsExpense: p.expense || amount.IsNegative(),
		Note:      p.note,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Added %s\n", tx.ID)
	return nil
}

func newLedgerDeleteCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ledger.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
