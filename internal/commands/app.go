package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
)

// app is what every data-directory command needs: config, logger and an open ledger.
type app struct {
	dir    string
	cfg    *config.Config
	log    zerolog.Logger
	ledger *ledger.Service
	close  func() error
}

func openApp(ctx context.Context, dataDir string) (*app, error) {
	dir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	store, closeStore, err := openStore(cfg, dir)
	if err != nil {
		return nil, err
	}

	svc := ledger.NewService(store, log)
	if err := svc.Open(ctx); err != nil {
		_ = closeStore()
		return nil, err
	}

	return &app{dir: dir, cfg: cfg, log: log, ledger: svc, close: closeStore}, nil
}

func openStore(cfg *config.Config, dir string) (ledger.Store, func() error, error) {
	path := cfg.LedgerPath(dir)
	switch cfg.Ledger.Backend {
	case config.BackendSQLite:
		s, err := ledger.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger database: %w", err)
		}
		return s, s.Close, nil
	default:
		return ledger.NewCSVStore(path), func() error { return nil }, nil
	}
}

func (a *app) client() *importer.Client {
	return importer.NewClient(a.cfg.Classifier.BaseURL, a.log, importer.WithTimeout(a.cfg.Classifier.Timeout))
}
