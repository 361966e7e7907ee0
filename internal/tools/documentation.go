// ABOUTME: Documentation pack serves documentation from YAML documents.
// ABOUTME: Falls back to legacy Markdown files for docs not yet converted.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a structured documentation entry.
type Document struct {
	Title    string       `yaml:"title" json:"title"`
	Overview string       `yaml:"overview" json:"overview"`
	Sections []DocSection `yaml:"sections" json:"sections,omitempty"`
}

// DocSection is a titled block within a document.
type DocSection struct {
	Heading string `yaml:"heading" json:"heading"`
	Body    string `yaml:"body" json:"body"`
}

// DocumentationPack creates the pack of documentation tools reading from
// docsDir. YAML documents take precedence; a Markdown file with the same
// doc type is the legacy fallback.
func DocumentationPack(docsDir string, logger *slog.Logger) *Pack {
	if logger == nil {
		logger = slog.Default()
	}
	h := &docHandlers{dir: docsDir, logger: logger}

	return &Pack{
		ID: "builtin:documentation",
		Tools: []*Tool{
			{
				Definition: &ToolDefinition{
					Name:        "substrate_documentation",
					Description: "Retrieve documentation by type (defaults to the overview)",
					InputSchema: `{"type":"object","properties":{"doc_type":{"type":"string"}}}`,
				},
				Handler: h.Documentation,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_list_docs",
					Description: "List available documentation types",
					InputSchema: `{"type":"object"}`,
				},
				Handler: h.ListDocs,
			},
		},
	}
}

type docHandlers struct {
	dir    string
	logger *slog.Logger
}

type documentationInput struct {
	DocType string `json:"doc_type"`
}

type documentationOutput struct {
	DocType  string    `json:"doc_type"`
	Format   string    `json:"format"` // "yaml" or "markdown"
	Document *Document `json:"document,omitempty"`
	Content  string    `json:"content,omitempty"`
}

func (h *docHandlers) Documentation(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in documentationInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}
	if in.DocType == "" {
		in.DocType = "overview"
	}
	if strings.ContainsAny(in.DocType, "/\\") {
		return nil, fmt.Errorf("invalid doc_type %q", in.DocType)
	}

	// YAML documents take precedence over legacy Markdown.
	yamlPath := filepath.Join(h.dir, in.DocType+".yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing documentation %q: %w", in.DocType, err)
		}
		return json.Marshal(documentationOutput{DocType: in.DocType, Format: "yaml", Document: &doc})
	}

	mdPath := filepath.Join(h.dir, in.DocType+".md")
	if data, err := os.ReadFile(mdPath); err == nil {
		return json.Marshal(documentationOutput{DocType: in.DocType, Format: "markdown", Content: string(data)})
	}

	available, _ := h.availableDocs()
	return nil, fmt.Errorf("documentation %q not found; available: %s",
		in.DocType, strings.Join(available, ", "))
}

type listDocsOutput struct {
	Docs  []string `json:"docs"`
	Count int      `json:"count"`
}

func (h *docHandlers) ListDocs(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	docs, err := h.availableDocs()
	if err != nil {
		return nil, err
	}
	return json.Marshal(listDocsOutput{Docs: docs, Count: len(docs)})
}

// availableDocs returns the doc types present in the docs directory,
// deduplicated across formats and sorted.
func (h *docHandlers) availableDocs() ([]string, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading docs directory: %w", err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".yaml"):
			seen[strings.TrimSuffix(name, ".yaml")] = struct{}{}
		case strings.HasSuffix(name, ".md"):
			seen[strings.TrimSuffix(name, ".md")] = struct{}{}
		}
	}

	docs := make([]string, 0, len(seen))
	for d := range seen {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs, nil
}
