package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Classifier.BaseURL = "https://classify.example.com"
	cfg.Classifier.Timeout = 45 * time.Second
	cfg.Ledger.Backend = BackendSQLite
	cfg.Ledger.Path = "ledger.db"
	cfg.Log.Pretty = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 60*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, BackendCSV, cfg.Ledger.Backend)
	assert.Equal(t, "ledger.csv", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.NotEmpty(t, cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("classifier:\n  base_url: https://x.example\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://x.example", cfg.Classifier.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, BackendCSV, cfg.Ledger.Backend)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("classifier: [unclosed"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestResolve_NoFile(t *testing.T) {
	cfg, err := Resolve(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, FileName), Default()))

	t.Setenv("TALLY_CLASSIFIER_BASE_URL", "https://env.example")
	t.Setenv("TALLY_CLASSIFIER_TIMEOUT", "5s")
	t.Setenv("TALLY_LEDGER_BACKEND", "sqlite")
	t.Setenv("TALLY_LEDGER_PATH", "/var/lib/tally/ledger.db")
	t.Setenv("TALLY_LOG_LEVEL", "debug")
	t.Setenv("TALLY_LOG_PRETTY", "true")
	t.Setenv("TALLY_SERVER_ADDR", ":9090")

	cfg, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Classifier.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "/var/lib/tally/ledger.db", cfg.LedgerPath(dir))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestResolve_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := "TALLY_SERVER_ADDR=:7070\nTALLY_LOG_LEVEL=warn\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(dotenv), 0o644))

	// godotenv sets process variables, so clear the one it will add.
	t.Cleanup(func() { os.Unsetenv("TALLY_SERVER_ADDR") })
	t.Setenv("TALLY_LOG_LEVEL", "debug")

	cfg, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level, "process environment wins over .env")
}

func TestResolve_BadEnv(t *testing.T) {
	t.Setenv("TALLY_CLASSIFIER_TIMEOUT", "soon")
	_, err := Resolve(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.Classifier.BaseURL = "classify" }},
		{"empty url", func(c *Config) { c.Classifier.BaseURL = "" }},
		{"negative timeout", func(c *Config) { c.Classifier.Timeout = -time.Second }},
		{"bad backend", func(c *Config) { c.Ledger.Backend = "postgres" }},
		{"no path", func(c *Config) { c.Ledger.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLedgerPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/data", "ledger.csv"), cfg.LedgerPath("/data"))
}
