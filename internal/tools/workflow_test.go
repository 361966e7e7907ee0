// ABOUTME: Tests for the workflow pack's pattern loading and navigation tools.
// ABOUTME: Patterns are written as YAML fixtures into a temp directory.

package tools

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePattern(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func setupWorkflowPack(t *testing.T) *Pack {
	t.Helper()
	dir := t.TempDir()

	writePattern(t, dir, "draft-review.yaml", `
name: draft-review
category: writing
description: Draft a document and iterate on it
steps:
  - tool: substrate_create_ref
    description: Save the first draft
  - tool: substrate_execute
    description: Apply the review template
  - tool: substrate_update_ref
    description: Save the revised draft
`)
	writePattern(t, dir, "cleanup.yaml", `
name: cleanup
category: maintenance
description: Prune stale scratch references
steps:
  - tool: substrate_list_refs
    description: Inspect what exists under the scratch prefix
  - tool: substrate_cleanup_refs
    description: Remove entries older than the retention window
`)
	writePattern(t, dir, "broken.yaml", "{{not yaml")

	return WorkflowPack(dir, testLogger())
}

func TestShowWorkflows_All(t *testing.T) {
	pack := setupWorkflowPack(t)

	out, err := callTool(t, pack, "substrate_show_workflows", `{}`)
	require.NoError(t, err)

	var result showWorkflowsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, 2, result.Count)
	// Sorted by name, the broken pattern skipped.
	assert.Equal(t, "cleanup", result.Workflows[0].Name)
	assert.Equal(t, "draft-review", result.Workflows[1].Name)
	assert.Equal(t, []string{"maintenance", "writing"}, result.Categories)
}

func TestShowWorkflows_FilterByCategory(t *testing.T) {
	pack := setupWorkflowPack(t)

	out, err := callTool(t, pack, "substrate_show_workflows", `{"category":"writing"}`)
	require.NoError(t, err)

	var result showWorkflowsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "draft-review", result.Workflows[0].Name)
}

func TestShowWorkflows_FilterByTool(t *testing.T) {
	pack := setupWorkflowPack(t)

	out, err := callTool(t, pack, "substrate_show_workflows", `{"tool":"substrate_cleanup_refs"}`)
	require.NoError(t, err)

	var result showWorkflowsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "cleanup", result.Workflows[0].Name)
}

func TestWorkflowGuide(t *testing.T) {
	pack := setupWorkflowPack(t)

	out, err := callTool(t, pack, "substrate_workflow_guide", `{"workflow_name":"draft-review"}`)
	require.NoError(t, err)

	var result workflowGuideOutput
	require.NoError(t, json.Unmarshal(out, &result))
	require.Len(t, result.Guide, 3)
	assert.Equal(t, "1. substrate_create_ref: Save the first draft", result.Guide[0])
	assert.Equal(t, "3. substrate_update_ref: Save the revised draft", result.Guide[2])
}

func TestWorkflowGuide_NotFound(t *testing.T) {
	pack := setupWorkflowPack(t)

	_, err := callTool(t, pack, "substrate_workflow_guide", `{"workflow_name":"nope"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup")
	assert.Contains(t, err.Error(), "draft-review")
}

func TestWorkflowPack_MissingDirectory(t *testing.T) {
	pack := WorkflowPack(filepath.Join(t.TempDir(), "absent"), testLogger())

	out, err := callTool(t, pack, "substrate_show_workflows", `{}`)
	require.NoError(t, err)

	var result showWorkflowsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, 0, result.Count)
}

func TestWorkflowPack_NameDefaultsToFilename(t *testing.T) {
	dir := t.TempDir()
	writePattern(t, dir, "unnamed.yaml", `
category: misc
description: A pattern without an explicit name
steps:
  - tool: substrate_read_ref
    description: Read something
`)

	pack := WorkflowPack(dir, testLogger())
	out, err := callTool(t, pack, "substrate_show_workflows", `{}`)
	require.NoError(t, err)

	var result showWorkflowsOutput
	require.NoError(t, json.Unmarshal(out, &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "unnamed", result.Workflows[0].Name)
}
