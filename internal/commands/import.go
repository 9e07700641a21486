package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/review"
)

// selectionOptions adjusts the default all-selected state before commit.
type selectionOptions struct {
	only    string
	skip    []string
	exclude []int
}

func newImportCommand(dataDir *string) *cobra.Command {
	var sel selectionOptions
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [statement.pdf]",
		Short: "Import a PDF statement, or every statement in import/",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sel.validate(); err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.close()

			var files []statement
			if len(args) > 0 {
				files = []statement{{path: args[0]}}
			} else {
				inbox, err := importer.Scan(a.dir)
				if err != nil {
					return err
				}
				for _, f := range inbox {
					files = append(files, statement{path: f.Path, inbox: true})
				}
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No statements to import.")
				return nil
			}

			return runImport(cmd.Context(), cmd.OutOrStdout(), a, files, sel, dryRun)
		},
	}

	cmd.Flags().StringVar(&sel.only, "only", "", "select only candidates in this category")
	cmd.Flags().StringSliceVar(&sel.skip, "skip", nil, "deselect candidates in this category (repeatable)")
	cmd.Flags().IntSliceVar(&sel.exclude, "exclude", nil, "toggle the candidate at this list position (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show candidates without committing")

	return cmd
}

type statement struct {
	path  string
	inbox bool
}

func (o selectionOptions) validate() error {
	labels := append([]string(nil), o.skip...)
	if o.only != "" {
		labels = append(labels, o.only)
	}
	for _, l := range labels {
		if _, ok := category.Lookup(l); !ok {
			return fmt.Errorf("unknown category %q", l)
		}
	}
	return nil
}

// apply runs the selection flags against a loaded session. The filter ends at All.
func (o selectionOptions) apply(s *review.Session) error {
	if o.only != "" {
		if err := s.DeselectAll(); err != nil {
			return err
		}
		if err := s.SetFilter(o.only); err != nil {
			return err
		}
		if err := s.SelectAll(); err != nil {
			return err
		}
	}
	for _, label := range o.skip {
		if err := s.SetFilter(label); err != nil {
			return err
		}
		if err := s.DeselectAll(); err != nil {
			return err
		}
	}
	if err := s.SetFilter(review.FilterAll); err != nil {
		return err
	}

	cands := s.Candidates(review.FilterAll)
	for _, n := range o.exclude {
		if n < 1 || n > len(cands) {
			return fmt.Errorf("--exclude %d is out of range 1..%d", n, len(cands))
		}
		if err := s.Toggle(cands[n-1].ID); err != nil {
			return err
		}
	}
	return nil
}

func runImport(ctx context.Context, w io.Writer, a *app, files []statement, sel selectionOptions, dryRun bool) error {
	client := a.client()
	failed := 0

	for _, f := range files {
		name := filepath.Base(f.path)
		entry := importlog.Entry{Source: name}

		cands, err := client.ParseFile(ctx, f.path)
		if err != nil {
			if importer.IsCanceled(err) {
				return err
			}
			failed++
			fmt.Fprintf(w, "%s: %s\n", name, importer.Message(err))
			entry.Status = importlog.StatusFailed
			entry.Detail = importer.Message(err)
			a.logImport(entry)
			continue
		}

		session := review.NewSession()
		session.Load(cands)
		if err := sel.apply(session); err != nil {
			return err
		}

		sum := session.Summary()
		entry.Bank = sum.DetectedBank
		entry.Parsed = sum.Total

		printSession(w, name, session)

		switch {
		case dryRun:
			entry.Status = importlog.StatusDryRun
			fmt.Fprintln(w, "Dry run, nothing committed.")
		default:
			n, err := session.Commit(ctx, a.ledger)
			if err != nil {
				return fmt.Errorf("committing %s: %w", name, err)
			}
			entry.Committed = n
			entry.Status = importlog.StatusCommitted
			if n == 0 {
				entry.Status = importlog.StatusEmpty
			}
			fmt.Fprintf(w, "Committed %d transactions.\n", n)

			if f.inbox {
				if err := importer.MarkProcessed(a.dir, filepath.Base(f.path)); err != nil {
					return err
				}
			}
		}
		a.logImport(entry)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed to import", failed, len(files))
	}
	return nil
}

func printSession(w io.Writer, name string, s *review.Session) {
	sum := s.Summary()
	bank := sum.DetectedBank
	if bank == "" {
		bank = "unknown bank"
	}
	fmt.Fprintf(w, "%s: %d transactions from %s\n", name, sum.Total, bank)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSEL\tDATE\tAMOUNT\tCATEGORY\tTITLE")
	for i, c := range s.Candidates(review.FilterAll) {
		mark := "[ ]"
		if c.IsSelected {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, mark, c.Date.Format("2006-01-02"), signedAmount(c), c.Category, c.Title)
	}
	tw.Flush()

	fmt.Fprintf(w, "Selected %d of %d (income %s, expenses %s)\n",
		sum.Selected, sum.Total, sum.SelectedIncome.StringFixed(2), sum.SelectedExpenses.StringFixed(2))

	b := s.Breakdown(4)
	parts := make([]string, 0, len(b.Top)+1)
	for _, c := range b.Top {
		parts = append(parts, fmt.Sprintf("%s %d", c.Category, c.Count))
	}
	if b.More > 0 {
		parts = append(parts, fmt.Sprintf("+%d more", b.More))
	}
	fmt.Fprintf(w, "Categories: %s\n", strings.Join(parts, ", "))
}

func signedAmount(c model.ParsedTransaction) string {
	if c.IsExpense {
		return "-" + c.Amount.StringFixed(2)
	}
	return "+" + c.Amount.StringFixed(2)
}

func (a *app) logImport(e importlog.Entry) {
	e.Timestamp = time.Now()
	if err := importlog.Append(a.dir, []importlog.Entry{e}); err != nil {
		a.log.Warn().Err(err).Msg("failed to write import log")
	}
}
