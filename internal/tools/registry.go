// ABOUTME: Thread-safe registry for tool packs executing in-process.
// ABOUTME: Manages pack registration, tool lookup, collision detection, and dispatch.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrPackAlreadyRegistered indicates a pack with the same ID is already registered.
var ErrPackAlreadyRegistered = errors.New("pack already registered")

// ErrToolCollision indicates a tool name already exists from another pack.
var ErrToolCollision = errors.New("tool name collision")

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolDefinition describes a tool exposed to MCP clients.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema string // JSON Schema document for the tool arguments
}

// ToolHandler executes a tool. It receives the raw JSON arguments and
// returns the result as JSON or an error.
type ToolHandler func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition *ToolDefinition
	Handler    ToolHandler
	PackID     string
}

// Pack is a collection of tools registered under a single ID.
type Pack struct {
	ID    string
	Tools []*Tool
}

// Registry maintains the set of registered packs and their tools.
type Registry struct {
	mu     sync.RWMutex
	packs  map[string]*Pack
	tools  map[string]*Tool // global tool name -> tool
	logger *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		packs:  make(map[string]*Pack),
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// RegisterPack validates and stores a pack and its tools.
// Returns ErrPackAlreadyRegistered if a pack with the same ID exists and
// ErrToolCollision if any tool name is already taken.
func (r *Registry) RegisterPack(pack *Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.packs[pack.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPackAlreadyRegistered, pack.ID)
	}

	for _, tool := range pack.Tools {
		if existing, exists := r.tools[tool.Definition.Name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'",
				ErrToolCollision, tool.Definition.Name, existing.PackID)
		}
	}

	for _, tool := range pack.Tools {
		tool.PackID = pack.ID
		r.tools[tool.Definition.Name] = tool
	}
	r.packs[pack.ID] = pack

	r.logger.Info("pack registered",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.tools),
	)
	return nil
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// ListTools returns all registered tools sorted by name.
func (r *Registry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition.Name < out[j].Definition.Name
	})
	return out
}

// Call dispatches a tool invocation to its handler.
// Returns ErrToolNotFound for unregistered names.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Handler(ctx, input)
}
