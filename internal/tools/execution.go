// ABOUTME: Execution pack composes input from references and applies a transformation template.
// ABOUTME: Results can be written back to the store with save_as for pipeline chaining.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ivan-saorin/substrate/internal/ledger"
	"github.com/ivan-saorin/substrate/internal/refs"
)

// refSeparator joins the contents of multiple references.
const refSeparator = "\n\n---\n\n"

// inputPlaceholder marks where a template receives the composed input.
const inputPlaceholder = "{input}"

// previewLimit caps the content preview returned by substrate_execute.
const previewLimit = 200

// ExecutionPack creates the pack with the substrate_execute tool.
func ExecutionPack(store refs.Store, ld *ledger.Ledger) *Pack {
	h := &execHandlers{store: store, ledger: ld}
	return &Pack{
		ID: "builtin:execution",
		Tools: []*Tool{
			{
				Definition: &ToolDefinition{
					Name:        "substrate_execute",
					Description: "Compose input from references, apply a transformation template, and optionally save the result",
					InputSchema: `{"type":"object","properties":{"prompt":{"type":"string"},"ref":{"type":"string"},"refs":{"type":"array","items":{"type":"string"}},"prompt_ref":{"type":"string"},"save_as":{"type":"string"}}}`,
				},
				Handler: h.Execute,
			},
		},
	}
}

type execHandlers struct {
	store  refs.Store
	ledger *ledger.Ledger
}

type executeInput struct {
	Prompt    string   `json:"prompt"`
	Ref       string   `json:"ref"`
	Refs      []string `json:"refs"`
	PromptRef string   `json:"prompt_ref"`
	SaveAs    string   `json:"save_as"`
}

type executeOutput struct {
	Status         string `json:"status"`
	InputType      string `json:"input_type"`
	TemplateUsed   bool   `json:"template_used"`
	SavedAs        string `json:"saved_as,omitempty"`
	SavedVersion   int    `json:"saved_version,omitempty"`
	ContentPreview string `json:"content_preview"`
}

func (h *execHandlers) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in executeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	content, inputType, err := h.composeInput(ctx, in)
	if err != nil {
		return nil, err
	}

	// When the input came from somewhere other than prompt_ref, the
	// prompt_ref holds the transformation template to apply.
	templateUsed := false
	if in.PromptRef != "" && inputType != "prompt_ref" {
		template, err := h.store.Read(ctx, in.PromptRef)
		if err != nil {
			return nil, guidance(err, in.PromptRef)
		}
		content = applyTemplate(template.Content, content)
		templateUsed = true
	}

	out := executeOutput{
		Status:         "executed",
		InputType:      inputType,
		TemplateUsed:   templateUsed,
		ContentPreview: preview(content),
	}

	if in.SaveAs != "" {
		res, err := h.store.CreateOrUpdate(ctx, in.SaveAs, content, map[string]string{"source": "substrate_execute"})
		if err != nil {
			h.record(ctx, in.SaveAs, 0, err)
			return nil, guidance(err, in.SaveAs)
		}
		h.record(ctx, res.Name, res.Version, nil)
		out.SavedAs = res.Name
		out.SavedVersion = res.Version
	}

	return json.Marshal(out)
}

// composeInput resolves the execution input with the priority
// ref > refs > prompt_ref > prompt.
func (h *execHandlers) composeInput(ctx context.Context, in executeInput) (string, string, error) {
	if in.Ref != "" {
		ref, err := h.store.Read(ctx, in.Ref)
		if err != nil {
			return "", "", guidance(err, in.Ref)
		}
		return ref.Content, "ref", nil
	}

	if len(in.Refs) > 0 {
		var contents []string
		for _, name := range in.Refs {
			ref, err := h.store.Read(ctx, name)
			if err != nil {
				if errors.Is(err, refs.ErrNotFound) {
					slog.Warn("skipping missing reference", "ref", name)
					continue
				}
				return "", "", guidance(err, name)
			}
			contents = append(contents, ref.Content)
		}
		if len(contents) > 0 {
			return strings.Join(contents, refSeparator), "refs", nil
		}
	}

	if in.PromptRef != "" {
		ref, err := h.store.Read(ctx, in.PromptRef)
		if err != nil {
			return "", "", guidance(err, in.PromptRef)
		}
		return ref.Content, "prompt_ref", nil
	}

	if in.Prompt != "" {
		return in.Prompt, "prompt", nil
	}

	return "", "", fmt.Errorf("no input provided; use prompt, ref, refs, or prompt_ref")
}

// applyTemplate substitutes the composed input into a template. Templates
// without an {input} placeholder are prepended to the input.
func applyTemplate(template, input string) string {
	if strings.Contains(template, inputPlaceholder) {
		return strings.ReplaceAll(template, inputPlaceholder, input)
	}
	return template + "\n\n" + input
}

func preview(content string) string {
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "..."
}

func (h *execHandlers) record(ctx context.Context, ref string, version int, opErr error) {
	if h.ledger == nil {
		return
	}
	entry := &ledger.Entry{Op: ledger.OpCreateOrUpdate, Ref: ref, Version: version, OK: opErr == nil}
	if opErr != nil {
		entry.Detail = opErr.Error()
	}
	if err := h.ledger.Record(ctx, entry); err != nil {
		slog.Warn("ledger record failed", "ref", ref, "error", err)
	}
}
