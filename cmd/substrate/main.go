// ABOUTME: Entry point for the substrate reference server
// ABOUTME: Serves versioned references over MCP with web views and maintenance commands

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/ivan-saorin/substrate/internal/config"
	"github.com/ivan-saorin/substrate/internal/refs"
	"github.com/ivan-saorin/substrate/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _         _             _
 ___ _   _| |__  ___| |_ _ __ __ _| |_ ___
/ __| | | | '_ \/ __| __| '__/ _' | __/ _ \
\__ \ |_| | |_) \__ \ |_| | | (_| | ||  __/
|___/\__,_|_.__/|___/\__|_|  \__,_|\__\___|
`

// getConfigPath returns the path to the substrate config file.
// Priority: SUBSTRATE_CONFIG env var > XDG_CONFIG_HOME/substrate/config.yaml > ~/.config/substrate/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SUBSTRATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "substrate.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "substrate", "config.yaml")
}

// loadConfig loads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: substrate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                       Start the substrate server")
		fmt.Println("  list [prefix]               List stored references")
		fmt.Println("  cleanup <prefix> <max-age>  Remove references older than max-age")
		fmt.Println("  health                      Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "list":
		err = runList(ctx)
	case "cleanup":
		err = runCleanup(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Storage: %s\n", cfg.Storage.Root)
	if cfg.Ledger.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Ledger:  %s\n", cfg.Ledger.Path)
	}
	fmt.Println()

	logger.Info("starting substrate",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"storage_root", cfg.Storage.Root,
	)

	srv, err := server.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runList(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := refs.NewFileStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("opening reference store: %w", err)
	}
	defer store.Close()

	prefix := ""
	if len(os.Args) > 2 {
		prefix = os.Args[2]
	}

	names, err := store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("listing references: %w", err)
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runCleanup(ctx context.Context) error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: substrate cleanup <prefix> <max-age>")
	}
	prefix := os.Args[2]
	maxAge, err := time.ParseDuration(os.Args[3])
	if err != nil {
		return fmt.Errorf("parsing max-age %q: %w", os.Args[3], err)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := refs.NewFileStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("opening reference store: %w", err)
	}
	defer store.Close()

	removed, err := store.Cleanup(ctx, prefix, maxAge)
	if err != nil {
		return fmt.Errorf("cleaning up: %w", err)
	}

	fmt.Printf("removed %d reference(s)\n", removed)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", strings.TrimPrefix(cfg.Server.HTTPAddr, "http://"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
