package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/model"
)

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [label...]",
		Short: "List categories, or show how labels normalize",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runNormalize(cmd.OutOrStdout(), args)
			}
			return runCategories(cmd.OutOrStdout())
		},
	}
}

func runCategories(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tKIND\tICON\tCOLOR")
	for _, c := range model.Categories() {
		kind := "expense"
		if c.IsIncome() {
			kind = "income"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c, kind, c.Icon(), c.Color())
	}
	return tw.Flush()
}

func runNormalize(w io.Writer, labels []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, l := range labels {
		fmt.Fprintf(tw, "%q\t%s\n", l, category.NormalizeString(l))
	}
	return tw.Flush()
}
