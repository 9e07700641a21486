package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/importer"
)

func newInitCommand() *cobra.Command {
	var backend string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, backend, baseURL)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", config.BackendCSV, "ledger backend (csv or sqlite)")
	cmd.Flags().StringVar(&baseURL, "classifier-url", "", "classification service base URL")

	return cmd
}

func runInit(ctx context.Context, w io.Writer, dir, backend, baseURL string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	dirs := []string{
		"logs",
		importer.InboxDir,
		importer.ProcessedDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	cfg.Ledger.Backend = backend
	if backend == config.BackendSQLite {
		cfg.Ledger.Path = "ledger.db"
	}
	if baseURL != "" {
		cfg.Classifier.BaseURL = baseURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create an empty ledger so later commands find a file.
	store, closeStore, err := openStore(cfg, dir)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.Save(ctx, nil); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, importer.InboxDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(w, "Initialized tally data directory at %s\n", dir)
	return nil
}
