// ABOUTME: Tests for the execution pack's input composition and save-back.
// ABOUTME: Covers the ref > refs > prompt_ref > prompt priority chain and templating.

package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivan-saorin/substrate/internal/refs"
)

func setupExecPack(t *testing.T) (*Pack, refs.Store) {
	t.Helper()
	store, err := refs.NewFileStore(filepath.Join(t.TempDir(), "refs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return ExecutionPack(store, nil), store
}

func seedRef(t *testing.T, store refs.Store, name, content string) {
	t.Helper()
	_, err := store.CreateOrUpdate(context.Background(), name, content, nil)
	require.NoError(t, err)
}

func execute(t *testing.T, pack *Pack, input string) executeOutput {
	t.Helper()
	out, err := callTool(t, pack, "substrate_execute", input)
	require.NoError(t, err)
	var result executeOutput
	require.NoError(t, json.Unmarshal(out, &result))
	return result
}

func TestExecute_DirectPrompt(t *testing.T) {
	pack, _ := setupExecPack(t)

	result := execute(t, pack, `{"prompt":"just this text"}`)
	assert.Equal(t, "executed", result.Status)
	assert.Equal(t, "prompt", result.InputType)
	assert.Equal(t, "just this text", result.ContentPreview)
	assert.False(t, result.TemplateUsed)
}

func TestExecute_RefBeatsPrompt(t *testing.T) {
	pack, store := setupExecPack(t)
	seedRef(t, store, "input/one", "ref content")

	result := execute(t, pack, `{"prompt":"ignored","ref":"input/one"}`)
	assert.Equal(t, "ref", result.InputType)
	assert.Equal(t, "ref content", result.ContentPreview)
}

func TestExecute_MultipleRefsJoined(t *testing.T) {
	pack, store := setupExecPack(t)
	seedRef(t, store, "parts/a", "first")
	seedRef(t, store, "parts/b", "second")

	result := execute(t, pack, `{"refs":["parts/a","parts/b"]}`)
	assert.Equal(t, "refs", result.InputType)
	assert.Equal(t, "first\n\n---\n\nsecond", result.ContentPreview)
}

func TestExecute_MissingRefsSkipped(t *testing.T) {
	pack, store := setupExecPack(t)
	seedRef(t, store, "parts/a", "only one")

	result := execute(t, pack, `{"refs":["parts/a","parts/missing"]}`)
	assert.Equal(t, "refs", result.InputType)
	assert.Equal(t, "only one", result.ContentPreview)
}

func TestExecute_TemplateApplied(t *testing.T) {
	pack, store := setupExecPack(t)
	seedRef(t, store, "input/text", "the payload")
	seedRef(t, store, "templates/wrap", "BEGIN {input} END")

	result := execute(t, pack, `{"ref":"input/text","prompt_ref":"templates/wrap"}`)
	assert.True(t, result.TemplateUsed)
	assert.Equal(t, "BEGIN the payload END", result.ContentPreview)
}

func TestExecute_PromptRefAsInput(t *testing.T) {
	pack, store := setupExecPack(t)
	seedRef(t, store, "prompts/stored", "stored prompt")

	// With no ref/refs, prompt_ref is the input itself, not a template.
	result := execute(t, pack, `{"prompt_ref":"prompts/stored"}`)
	assert.Equal(t, "prompt_ref", result.InputType)
	assert.False(t, result.TemplateUsed)
	assert.Equal(t, "stored prompt", result.ContentPreview)
}

func TestExecute_SaveAs(t *testing.T) {
	pack, store := setupExecPack(t)
	ctx := context.Background()

	result := execute(t, pack, `{"prompt":"persist me","save_as":"pipeline/out"}`)
	assert.Equal(t, "pipeline/out", result.SavedAs)
	assert.Equal(t, 1, result.SavedVersion)

	saved, err := store.Read(ctx, "pipeline/out")
	require.NoError(t, err)
	assert.Equal(t, "persist me", saved.Content)
	assert.Equal(t, "substrate_execute", saved.Metadata["source"])
}

func TestExecute_NoInput(t *testing.T) {
	pack, _ := setupExecPack(t)

	_, err := callTool(t, pack, "substrate_execute", `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input provided")
}

func TestExecute_MissingRefError(t *testing.T) {
	pack, _ := setupExecPack(t)

	_, err := callTool(t, pack, "substrate_execute", `{"ref":"missing/ref"}`)
	assert.ErrorIs(t, err, refs.ErrNotFound)
}
