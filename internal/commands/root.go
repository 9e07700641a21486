package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Import bank statements into a personal ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "C", ".", "tally data directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(&dataDir))
	rootCmd.AddCommand(newLedgerCommand(&dataDir))
	rootCmd.AddCommand(newCategoriesCommand())
	rootCmd.AddCommand(newServeCommand(&dataDir))

	return rootCmd
}
