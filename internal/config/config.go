package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the config file kept at the root of a data directory.
const FileName = "tally.yaml"

// EnvPrefix marks environment variables that override the file.
const EnvPrefix = "TALLY_"

// DotEnvFile is an optional KEY=value file in the data directory. Variables
// already set in the process environment take precedence over it.
const DotEnvFile = ".env"

// Ledger backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
}

// ClassifierConfig points at the statement classification service.
type ClassifierConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig selects where committed transactions are stored.
type LedgerConfig struct {
	Backend string `yaml:"backend"` // csv or sqlite
	Path    string `yaml:"path"`    // relative to the data directory unless absolute
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ServerConfig controls `tally serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// envOverlay is TALLY_* environment variables, flat-keyed as in the process env.
type envOverlay struct {
	BaseURL string `koanf:"TALLY_CLASSIFIER_BASE_URL"`
	Timeout string `koanf:"TALLY_CLASSIFIER_TIMEOUT"`
	Backend string `koanf:"TALLY_LEDGER_BACKEND"`
	Path    string `koanf:"TALLY_LEDGER_PATH"`
	Level   string `koanf:"TALLY_LOG_LEVEL"`
	Pretty  string `koanf:"TALLY_LOG_PRETTY"`
	Addr    string `koanf:"TALLY_SERVER_ADDR"`
}

// Load reads a tally.yaml file from disk. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Ledger: LedgerConfig{
			Backend: BackendCSV,
			Path:    "ledger.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Resolve loads <dataDir>/tally.yaml (defaults if absent), applies the
// environment overlay (including <dataDir>/.env) and validates the result.
func Resolve(dataDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(dataDir, DotEnvFile)); err != nil {
		return nil, err
	}

	cfg, err := Load(filepath.Join(dataDir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any TALLY_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", nil), nil); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	var ov envOverlay
	if err := k.UnmarshalWithConf("", &ov, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return fmt.Errorf("decoding environment: %w", err)
	}

	setString(&cfg.Classifier.BaseURL, ov.BaseURL)
	setString(&cfg.Ledger.Backend, ov.Backend)
	setString(&cfg.Ledger.Path, ov.Path)
	setString(&cfg.Log.Level, ov.Level)
	setString(&cfg.Server.Addr, ov.Addr)

	if ov.Timeout != "" {
		d, err := time.ParseDuration(ov.Timeout)
		if err != nil {
			return fmt.Errorf("parsing %sCLASSIFIER_TIMEOUT %q: %w", EnvPrefix, ov.Timeout, err)
		}
		cfg.Classifier.Timeout = d
	}
	if ov.Pretty != "" {
		cfg.Log.Pretty = ov.Pretty == "1" || ov.Pretty == "true"
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Classifier.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("classifier.base_url %q must be an absolute URL", c.Classifier.BaseURL)
	}
	if c.Classifier.Timeout < 0 {
		return fmt.Errorf("classifier.timeout must not be negative")
	}
	switch c.Ledger.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("ledger.backend %q must be %q or %q", c.Ledger.Backend, BackendCSV, BackendSQLite)
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	return nil
}

// LedgerPath returns the ledger file location for dataDir.
func (c *Config) LedgerPath(dataDir string) string {
	if filepath.IsAbs(c.Ledger.Path) {
		return c.Ledger.Path
	}
	return filepath.Join(dataDir, c.Ledger.Path)
}
