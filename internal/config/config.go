package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rsnash92/taxfolio/internal/cgt"
)

// FileName is the config file at the root of a taxfolio repo.
const FileName = "taxfolio.yaml"

// Environment variables that override the file.
const (
	EnvLogLevel      = "TAXFOLIO_LOG_LEVEL"
	EnvLogFormat     = "TAXFOLIO_LOG_FORMAT"
	EnvStorageDriver = "TAXFOLIO_STORAGE_DRIVER"
	EnvStoragePath   = "TAXFOLIO_STORAGE_PATH"
	EnvUser          = "TAXFOLIO_USER"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Storage drivers.
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

// Config represents the top-level taxfolio.yaml configuration.
type Config struct {
	User           string        `yaml:"user"`
	Currency       string        `yaml:"currency"`
	Matching       string        `yaml:"matching"`
	Unmatched      string        `yaml:"unmatched"`
	DefaultTaxYear string        `yaml:"default_tax_year"`
	TaxYears       []TaxYear     `yaml:"tax_years"`
	Storage        StorageConfig `yaml:"storage"`
	Git            GitConfig     `yaml:"git"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"` // text | json
}

// TaxYear holds the allowance and rate for one year, e.g. "2024/25".
type TaxYear struct {
	Label           string          `yaml:"label"`
	AnnualExemption decimal.Decimal `yaml:"annual_exemption"`
	Rate            decimal.Decimal `yaml:"rate"`
}

// StorageConfig selects where the ledger lives.
type StorageConfig struct {
	Driver string `yaml:"driver"` // csv | sqlite
	Path   string `yaml:"path"`   // relative to the repo root unless absolute
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a taxfolio.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
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

// Default returns a Config for a new repo, seeded with recent UK tax years.
func Default(user string) *Config {
	rate := decimal.RequireFromString("0.20")
	return &Config{
		User:           user,
		Currency:       "GBP",
		Matching:       cgt.PureFIFO.String(),
		Unmatched:      cgt.Ignore.String(),
		DefaultTaxYear: "2024/25",
		TaxYears: []TaxYear{
			{Label: "2022/23", AnnualExemption: decimal.NewFromInt(12300), Rate: rate},
			{Label: "2023/24", AnnualExemption: decimal.NewFromInt(6000), Rate: rate},
			{Label: "2024/25", AnnualExemption: decimal.NewFromInt(3000), Rate: rate},
		},
		Storage: StorageConfig{
			Driver: DriverCSV,
			Path:   "ledger/transactions.csv",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Taxfolio",
			AuthorEmail: "taxfolio@localhost",
		},
		LogLevel:  "info",
		LogFormat: LogFormatText,
	}
}

// Validate reports the first problem that would make a computation fail.
func (c *Config) Validate() error {
	if _, err := cgt.ParseMatchingStrategy(c.Matching); err != nil {
		return err
	}
	if _, err := cgt.ParseUnmatchedPolicy(c.Unmatched); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case "", DriverCSV, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.LogFormat {
	case "", LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	seen := make(map[string]bool)
	for _, y := range c.TaxYears {
		if y.Label == "" {
			return fmt.Errorf("tax year with empty label")
		}
		if seen[y.Label] {
			return fmt.Errorf("duplicate tax year %q", y.Label)
		}
		seen[y.Label] = true

		p := cgt.Params{AnnualExemption: y.AnnualExemption, FlatRate: y.Rate}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("tax year %s: %w", y.Label, err)
		}
	}

	if c.DefaultTaxYear != "" && !seen[c.DefaultTaxYear] {
		return fmt.Errorf("default tax year %q is not configured", c.DefaultTaxYear)
	}
	return nil
}

// TaxYear returns the year called label, or the default year when label is empty.
func (c *Config) TaxYear(label string) (TaxYear, error) {
	if label == "" {
		label = c.DefaultTaxYear
	}
	for _, y := range c.TaxYears {
		if y.Label == label {
			return y, nil
		}
	}
	return TaxYear{}, fmt.Errorf("tax year %q is not configured", label)
}

// Params builds engine parameters for the given year. Empty matching and
// unmatched arguments fall back to the config.
func (c *Config) Params(label, matching, unmatched string) (cgt.Params, error) {
	year, err := c.TaxYear(label)
	if err != nil {
		return cgt.Params{}, err
	}
	if matching == "" {
		matching = c.Matching
	}
	if unmatched == "" {
		unmatched = c.Unmatched
	}

	strategy, err := cgt.ParseMatchingStrategy(matching)
	if err != nil {
		return cgt.Params{}, err
	}
	policy, err := cgt.ParseUnmatchedPolicy(unmatched)
	if err != nil {
		return cgt.Params{}, err
	}

	p := cgt.Params{
		AnnualExemption: year.AnnualExemption,
		FlatRate:        year.Rate,
		Matching:        strategy,
		Unmatched:       policy,
	}
	return p, p.Validate()
}

// StoragePath resolves the ledger location against repoRoot.
func (c *Config) StoragePath(repoRoot string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(repoRoot, c.Storage.Path)
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies TAXFOLIO_* overrides. Variables already set win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvUser); v != "" {
		c.User = v
	}
	return nil
}
