// ABOUTME: Reference pack exposes CRUD, listing, and cleanup tools over the reference store.
// ABOUTME: Translates store errors into user-facing guidance and records mutations in the ledger.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivan-saorin/substrate/internal/ledger"
	"github.com/ivan-saorin/substrate/internal/refs"
)

// ReferencePack creates the pack of reference management tools.
// The ledger may be nil, in which case mutations are not audited.
func ReferencePack(store refs.Store, ld *ledger.Ledger) *Pack {
	h := &refHandlers{store: store, ledger: ld}
	return &Pack{
		ID: "builtin:references",
		Tools: []*Tool{
			{
				Definition: &ToolDefinition{
					Name:        "substrate_create_ref",
					Description: "Create or update a reference; returns the new version",
					InputSchema: `{"type":"object","properties":{"ref":{"type":"string"},"content":{"type":"string"},"metadata":{"type":"object","additionalProperties":{"type":"string"}}},"required":["ref","content"]}`,
				},
				Handler: h.CreateRef,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_read_ref",
					Description: "Read a reference's content, metadata, and version",
					InputSchema: `{"type":"object","properties":{"ref":{"type":"string"}},"required":["ref"]}`,
				},
				Handler: h.ReadRef,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_update_ref",
					Description: "Update an existing reference's content",
					InputSchema: `{"type":"object","properties":{"ref":{"type":"string"},"content":{"type":"string"}},"required":["ref","content"]}`,
				},
				Handler: h.UpdateRef,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_delete_ref",
					Description: "Delete a reference",
					InputSchema: `{"type":"object","properties":{"ref":{"type":"string"}},"required":["ref"]}`,
				},
				Handler: h.DeleteRef,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_list_refs",
					Description: "List reference names, optionally under a prefix",
					InputSchema: `{"type":"object","properties":{"prefix":{"type":"string"}}}`,
				},
				Handler: h.ListRefs,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_cleanup_refs",
					Description: "Remove references under a prefix older than max_age_seconds",
					InputSchema: `{"type":"object","properties":{"prefix":{"type":"string"},"max_age_seconds":{"type":"number"}},"required":["prefix","max_age_seconds"]}`,
				},
				Handler: h.CleanupRefs,
			},
		},
	}
}

type refHandlers struct {
	store  refs.Store
	ledger *ledger.Ledger
}

// record appends an audit entry for a mutating operation. Best-effort:
// ledger failures never fail the operation that already completed.
func (h *refHandlers) record(ctx context.Context, op ledger.Op, ref string, version int, opErr error) {
	if h.ledger == nil {
		return
	}
	entry := &ledger.Entry{Op: op, Ref: ref, Version: version, OK: opErr == nil}
	if opErr != nil {
		entry.Detail = opErr.Error()
	}
	if err := h.ledger.Record(ctx, entry); err != nil {
		slog.Warn("ledger record failed", "op", op, "ref", ref, "error", err)
	}
}

// guidance rewraps store errors with actionable advice for the caller.
// The original error stays in the chain so errors.Is keeps working.
func guidance(err error, ref string) error {
	switch {
	case errors.Is(err, refs.ErrNotFound):
		return fmt.Errorf("%w; nothing stored yet under %q, create it with substrate_create_ref", err, ref)
	case errors.Is(err, refs.ErrInvalidName):
		return fmt.Errorf("%w; use slash-delimited names like \"prompts/greeting\" without \"..\" segments", err)
	default:
		return err
	}
}

type createRefInput struct {
	Ref      string            `json:"ref"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type writeRefOutput struct {
	Ref     string `json:"ref"`
	Version int    `json:"version"`
}

func (h *refHandlers) CreateRef(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createRefInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	res, err := h.store.CreateOrUpdate(ctx, in.Ref, in.Content, in.Metadata)
	if err != nil {
		h.record(ctx, ledger.OpCreateOrUpdate, in.Ref, 0, err)
		return nil, guidance(err, in.Ref)
	}
	h.record(ctx, ledger.OpCreateOrUpdate, res.Name, res.Version, nil)

	return json.Marshal(writeRefOutput{Ref: res.Name, Version: res.Version})
}

type readRefInput struct {
	Ref string `json:"ref"`
}

type readRefOutput struct {
	Ref      string            `json:"ref"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Version  int               `json:"version"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
}

func (h *refHandlers) ReadRef(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in readRefInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	ref, err := h.store.Read(ctx, in.Ref)
	if err != nil {
		return nil, guidance(err, in.Ref)
	}

	return json.Marshal(readRefOutput{
		Ref:      ref.Name,
		Content:  ref.Content,
		Metadata: ref.Metadata,
		Version:  ref.Version,
		Created:  ref.CreatedAt,
		Updated:  ref.UpdatedAt,
	})
}

type updateRefInput struct {
	Ref     string `json:"ref"`
	Content string `json:"content"`
}

func (h *refHandlers) UpdateRef(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in updateRefInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	res, err := h.store.Update(ctx, in.Ref, in.Content)
	if err != nil {
		h.record(ctx, ledger.OpUpdate, in.Ref, 0, err)
		return nil, guidance(err, in.Ref)
	}
	h.record(ctx, ledger.OpUpdate, res.Name, res.Version, nil)

	return json.Marshal(writeRefOutput{Ref: res.Name, Version: res.Version})
}

type deleteRefInput struct {
	Ref string `json:"ref"`
}

type deleteRefOutput struct {
	Ref     string `json:"ref"`
	Deleted bool   `json:"deleted"`
}

func (h *refHandlers) DeleteRef(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in deleteRefInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if err := h.store.Delete(ctx, in.Ref); err != nil {
		h.record(ctx, ledger.OpDelete, in.Ref, 0, err)
		return nil, guidance(err, in.Ref)
	}
	h.record(ctx, ledger.OpDelete, in.Ref, 0, nil)

	return json.Marshal(deleteRefOutput{Ref: in.Ref, Deleted: true})
}

type listRefsInput struct {
	Prefix string `json:"prefix"`
}

type listRefsOutput struct {
	Refs  []string `json:"refs"`
	Count int      `json:"count"`
}

func (h *refHandlers) ListRefs(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listRefsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}

	names, err := h.store.List(ctx, in.Prefix)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}

	return json.Marshal(listRefsOutput{Refs: names, Count: len(names)})
}

type cleanupRefsInput struct {
	Prefix        string  `json:"prefix"`
	MaxAgeSeconds float64 `json:"max_age_seconds"`
}

type cleanupRefsOutput struct {
	Removed int `json:"removed"`
}

func (h *refHandlers) CleanupRefs(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in cleanupRefsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.MaxAgeSeconds < 0 {
		return nil, fmt.Errorf("max_age_seconds must not be negative")
	}

	maxAge := time.Duration(in.MaxAgeSeconds * float64(time.Second))
	removed, err := h.store.Cleanup(ctx, in.Prefix, maxAge)
	h.record(ctx, ledger.OpCleanup, in.Prefix, removed, err)
	if err != nil {
		return nil, err
	}

	return json.Marshal(cleanupRefsOutput{Removed: removed})
}
