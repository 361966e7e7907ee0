// ABOUTME: Tests for the read-only reference web views.
// ABOUTME: Exercises the index listing and Markdown-rendered reference pages.

package webview

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivan-saorin/substrate/internal/refs"
)

func setupViewer(t *testing.T) (*http.ServeMux, refs.Store) {
	t.Helper()
	store, err := refs.NewFileStore(filepath.Join(t.TempDir(), "refs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	viewer := NewViewer(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	viewer.RegisterRoutes(mux)
	return mux, store
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestIndex_ListsReferences(t *testing.T) {
	mux, store := setupViewer(t)
	ctx := context.Background()

	_, err := store.CreateOrUpdate(ctx, "notes/alpha", "content", nil)
	require.NoError(t, err)
	_, err = store.CreateOrUpdate(ctx, "notes/beta", "content", nil)
	require.NoError(t, err)

	rr := get(mux, "/refs")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `href="/refs/notes/alpha"`)
	assert.Contains(t, body, `href="/refs/notes/beta"`)
}

func TestIndex_Empty(t *testing.T) {
	mux, _ := setupViewer(t)

	rr := get(mux, "/refs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No references stored.")
}

func TestRefPage_RendersMarkdown(t *testing.T) {
	mux, store := setupViewer(t)

	_, err := store.CreateOrUpdate(context.Background(), "docs/guide",
		"# Heading\n\nSome *emphasis* here.", map[string]string{"author": "team"})
	require.NoError(t, err)

	rr := get(mux, "/refs/docs/guide")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<h1>Heading</h1>")
	assert.Contains(t, body, "<em>emphasis</em>")
	assert.Contains(t, body, "version 1")
	assert.Contains(t, body, "author")
}

func TestRefPage_NotFound(t *testing.T) {
	mux, _ := setupViewer(t)

	rr := get(mux, "/refs/missing/ref")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRefPage_InvalidName(t *testing.T) {
	mux, _ := setupViewer(t)

	rr := get(mux, `/refs/bad\name`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefPage_EscapesRawHTMLInMetadata(t *testing.T) {
	mux, store := setupViewer(t)

	_, err := store.CreateOrUpdate(context.Background(), "notes/x", "plain",
		map[string]string{"note": "<script>alert(1)</script>"})
	require.NoError(t, err)

	rr := get(mux, "/refs/notes/x")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "<script>alert(1)</script>"))
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := setupViewer(t)

	req := httptest.NewRequest(http.MethodPost, "/refs", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
