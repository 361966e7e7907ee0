// Package config handles configuration loading for the substrate server.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	storage:
//	  root: "${SUBSTRATE_DATA}/refs"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	cleanup:
//	  max_age: "168h"
//	  interval: "1h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8586"   # MCP endpoint and web views
//
// Reference storage:
//
//	storage:
//	  root: "/var/lib/substrate/refs"
//
// Operation ledger (empty path disables it):
//
//	ledger:
//	  path: "/var/lib/substrate/ledger.db"
//
// Workflow patterns and documentation:
//
//	features:
//	  patterns_dir: "/var/lib/substrate/patterns"
//	  docs_dir: "/var/lib/substrate/docs"
//
// Periodic cleanup (empty prefix disables it):
//
//	cleanup:
//	  prefix: "scratch/"
//	  max_age: "168h"
//	  interval: "1h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/substrate/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or start from defaults when no file is given:
//
//	cfg := config.Default()
package config
