// ABOUTME: Tests for the documentation pack's YAML precedence and legacy fallback.
// ABOUTME: Fixtures cover both formats plus the missing-directory case.

package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocPack(t *testing.T) *Pack {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "overview.yaml"), []byte(`
title: Substrate Overview
overview: Versioned reference store for text content.
sections:
  - heading: Getting started
    body: Create a reference with substrate_create_ref.
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes.md"),
		[]byte("# Recipes\n\nLegacy markdown content.\n"), 0o644))
	// Same doc type in both formats; YAML must win.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.yaml"),
		[]byte("title: Mixed\noverview: From YAML.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.md"),
		[]byte("From markdown."), 0o644))

	return DocumentationPack(dir, testLogger())
}

func getDoc(t *testing.T, pack *Pack, input string) documentationOutput {
	t.Helper()
	out, err := callTool(t, pack, "substrate_documentation", input)
	require.NoError(t, err)
	var result documentationOutput
	require.NoError(t, json.Unmarshal(out, &result))
	return result
}

func TestDocumentation_DefaultsToOverview(t *testing.T) {
	pack := setupDocPack(t)

	result := getDoc(t, pack, `{}`)
	assert.Equal(t, "overview", result.DocType)
	assert.Equal(t, "yaml", result.Format)
	require.NotNil(t, result.Document)
	assert.Equal(t, "Substrate Overview", result.Document.Title)
	require.Len(t, result.Document.Sections, 1)
	assert.Equal(t, "Getting started", result.Document.Sections[0].Heading)
}

func TestDocumentation_MarkdownFallback(t *testing.T) {
	pack := setupDocPack(t)

	result := getDoc(t, pack, `{"doc_type":"recipes"}`)
	assert.Equal(t, "markdown", result.Format)
	assert.Nil(t, result.Document)
	assert.Contains(t, result.Content, "Legacy markdown content.")
}

func TestDocumentation_YamlWinsOverMarkdown(t *testing.T) {
	pack := setupDocPack(t)

	result := getDoc(t, pack, `{"doc_type":"mixed"}`)
	assert.Equal(t, "yaml", result.Format)
	require.NotNil(t, result.Document)
	assert.Equal(t, "From YAML.", result.Document.Overview)
}

func TestDocumentation_NotFoundListsAvailable(t *testing.T) {
	pack := setupDocPack(t)

	_, err := callTool(t, pack, "substrate_documentation", `{"doc_type":"absent"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overview")
	assert.Contains(t, err.Error(), "recipes")
}

func TestDocumentation_RejectsPathSeparators(t *testing.T) {
	pack := setupDocPack(t)

	_, err := callTool(t, pack, "substrate_documentation", `{"doc_type":"../secret"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid doc_type")
}

func TestListDocs_DeduplicatesFormats(t *testing.T) {
	pack := setupDocPack(t)

	out, err := callTool(t, pack, "substrate_list_docs", `{}`)
	require.NoError(t, err)

	var result listDocsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, []string{"mixed", "overview", "recipes"}, result.Docs)
	assert.Equal(t, 3, result.Count)
}

func TestListDocs_MissingDirectory(t *testing.T) {
	pack := DocumentationPack(filepath.Join(t.TempDir(), "absent"), testLogger())

	out, err := callTool(t, pack, "substrate_list_docs", `{}`)
	require.NoError(t, err)

	var result listDocsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Empty(t, result.Docs)
}
