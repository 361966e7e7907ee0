// ABOUTME: Server assembly wiring the store, ledger, tool packs, and HTTP surface.
// ABOUTME: Owns the HTTP lifecycle, the cleanup loop, and graceful shutdown.

// Package server assembles the substrate components into a running
// service: the file-backed reference store, the optional operation
// ledger, the tool pack registry, the MCP endpoint, and the read-only
// web views, all behind one HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ivan-saorin/substrate/internal/config"
	"github.com/ivan-saorin/substrate/internal/ledger"
	"github.com/ivan-saorin/substrate/internal/mcp"
	"github.com/ivan-saorin/substrate/internal/refs"
	"github.com/ivan-saorin/substrate/internal/tools"
	"github.com/ivan-saorin/substrate/internal/webview"
)

// Server hosts the substrate HTTP surface and background maintenance.
type Server struct {
	config     *config.Config
	store      refs.Store
	ledger     *ledger.Ledger
	registry   *tools.Registry
	httpServer *http.Server
	logger     *slog.Logger
	version    string
}

// New creates a Server from the given configuration.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	store, err := refs.NewFileStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("opening reference store: %w", err)
	}

	var ld *ledger.Ledger
	if cfg.Ledger.Path != "" {
		ld, err = ledger.Open(cfg.Ledger.Path)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
	}

	registry := tools.NewRegistry(logger.With("component", "registry"))
	packs := []*tools.Pack{
		tools.ReferencePack(store, ld),
		tools.ExecutionPack(store, ld),
		tools.WorkflowPack(cfg.Features.PatternsDir, logger.With("component", "workflows")),
		tools.DocumentationPack(cfg.Features.DocsDir, logger.With("component", "documentation")),
	}
	for _, pack := range packs {
		if err := registry.RegisterPack(pack); err != nil {
			_ = store.Close()
			if ld != nil {
				_ = ld.Close()
			}
			return nil, fmt.Errorf("registering pack %s: %w", pack.ID, err)
		}
	}

	srv := &Server{
		config:   cfg,
		store:    store,
		ledger:   ld,
		registry: registry,
		logger:   logger.With("component", "server"),
		version:  version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry: registry,
		Logger:   logger.With("component", "mcp"),
		Version:  version,
	})
	if err != nil {
		_ = store.Close()
		if ld != nil {
			_ = ld.Close()
		}
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	mcpServer.RegisterRoutes(mux)

	viewer := webview.NewViewer(store, logger.With("component", "webview"))
	viewer.RegisterRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Store returns the underlying reference store.
func (s *Server) Store() refs.Store {
	return s.store
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if s.config.Cleanup.Prefix != "" {
		go s.cleanupLoop(ctx)
	}

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// cleanupLoop periodically removes stale references under the configured
// prefix until the context is canceled.
func (s *Server) cleanupLoop(ctx context.Context) {
	cfg := s.config.Cleanup
	s.logger.Info("cleanup loop started",
		"prefix", cfg.Prefix,
		"max_age", cfg.MaxAge,
		"interval", cfg.Interval,
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Server) runCleanup(ctx context.Context) {
	cfg := s.config.Cleanup
	removed, err := s.store.Cleanup(ctx, cfg.Prefix, cfg.MaxAge)
	if err != nil {
		s.logger.Warn("cleanup failed", "prefix", cfg.Prefix, "error", err)
	} else if removed > 0 {
		s.logger.Info("cleanup removed references", "prefix", cfg.Prefix, "count", removed)
	}

	if s.ledger != nil {
		entry := &ledger.Entry{Op: ledger.OpCleanup, Ref: cfg.Prefix, Version: removed, OK: err == nil}
		if err != nil {
			entry.Detail = err.Error()
		}
		if lerr := s.ledger.Record(ctx, entry); lerr != nil {
			s.logger.Warn("ledger record failed", "error", lerr)
		}
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases storage resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
