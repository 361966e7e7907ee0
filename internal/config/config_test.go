// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8586"

storage:
  root: "./data/refs"

ledger:
  path: "./data/ledger.db"

features:
  patterns_dir: "./data/patterns"
  docs_dir: "./data/docs"

cleanup:
  prefix: "scratch/"
  max_age: "168h"
  interval: "1h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8586" {
		t.Errorf("unexpected http_addr: %q", cfg.Server.HTTPAddr)
	}
	if cfg.Storage.Root != "./data/refs" {
		t.Errorf("unexpected storage root: %q", cfg.Storage.Root)
	}
	if cfg.Ledger.Path != "./data/ledger.db" {
		t.Errorf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Cleanup.MaxAge != 168*time.Hour {
		t.Errorf("unexpected cleanup max_age: %v", cfg.Cleanup.MaxAge)
	}
	if cfg.Cleanup.Interval != time.Hour {
		t.Errorf("unexpected cleanup interval: %v", cfg.Cleanup.Interval)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging format: %q", cfg.Logging.Format)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("SUBSTRATE_TEST_ROOT", "/var/lib/substrate")

	path := writeConfig(t, `
server:
  http_addr: ":8586"
storage:
  root: "${SUBSTRATE_TEST_ROOT}/refs"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Root != "/var/lib/substrate/refs" {
		t.Errorf("env var not expanded: %q", cfg.Storage.Root)
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8586${SUBSTRATE_DEFINITELY_UNSET}"
storage:
  root: "./refs"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8586" {
		t.Errorf("unexpected http_addr: %q", cfg.Server.HTTPAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{not yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8586"
storage:
  root: "./refs"
cleanup:
  prefix: "scratch/"
  max_age: "one week"
  interval: "1h"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_age") {
		t.Fatalf("expected max_age parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "missing storage root",
			mutate:  func(c *Config) { c.Storage.Root = "" },
			wantErr: "storage.root",
		},
		{
			name: "cleanup prefix without max_age",
			mutate: func(c *Config) {
				c.Cleanup.Prefix = "scratch/"
				c.Cleanup.Interval = time.Hour
			},
			wantErr: "cleanup.max_age",
		},
		{
			name: "cleanup prefix without interval",
			mutate: func(c *Config) {
				c.Cleanup.Prefix = "scratch/"
				c.Cleanup.MaxAge = time.Hour
			},
			wantErr: "cleanup.interval",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
