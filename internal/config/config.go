// ABOUTME: Configuration loading and parsing for the substrate server
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete substrate configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Features FeaturesConfig `yaml:"features"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig holds reference store configuration
type StorageConfig struct {
	// Root is the directory references are stored under
	Root string `yaml:"root"`
}

// LedgerConfig holds the operation ledger configuration
type LedgerConfig struct {
	// Path is the SQLite database file; empty disables the ledger
	Path string `yaml:"path"`
}

// FeaturesConfig holds directories backing the workflow and documentation tools
type FeaturesConfig struct {
	PatternsDir string `yaml:"patterns_dir"`
	DocsDir     string `yaml:"docs_dir"`
}

// CleanupConfig holds periodic cleanup configuration
type CleanupConfig struct {
	// Prefix limits cleanup to references under this prefix; empty disables it
	Prefix string `yaml:"prefix"`

	MaxAge   time.Duration `yaml:"-"`
	Interval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	MaxAgeRaw   string `yaml:"max_age"`
	IntervalRaw string `yaml:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{HTTPAddr: ":8586"},
		Storage: StorageConfig{Root: "substrate-data/refs"},
		Ledger:  LedgerConfig{Path: "substrate-data/ledger.db"},
		Features: FeaturesConfig{
			PatternsDir: "substrate-data/patterns",
			DocsDir:     "substrate-data/docs",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}

	if c.Cleanup.Prefix != "" {
		if c.Cleanup.MaxAge <= 0 {
			return fmt.Errorf("cleanup.max_age is required when cleanup.prefix is set")
		}
		if c.Cleanup.Interval <= 0 {
			return fmt.Errorf("cleanup.interval is required when cleanup.prefix is set")
		}
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Cleanup.MaxAgeRaw != "" {
		cfg.Cleanup.MaxAge, err = time.ParseDuration(cfg.Cleanup.MaxAgeRaw)
		if err != nil {
			return fmt.Errorf("parsing cleanup.max_age %q: %w", cfg.Cleanup.MaxAgeRaw, err)
		}
	}

	if cfg.Cleanup.IntervalRaw != "" {
		cfg.Cleanup.Interval, err = time.ParseDuration(cfg.Cleanup.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing cleanup.interval %q: %w", cfg.Cleanup.IntervalRaw, err)
		}
	}

	return nil
}
