// ABOUTME: Read-only web views of stored references with Markdown rendering.
// ABOUTME: Serves an index of references and a rendered page per reference.

// Package webview serves a minimal read-only HTML surface over the
// reference store. Reference content is treated as Markdown and rendered
// with goldmark; metadata and version information appear alongside.
package webview

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/ivan-saorin/substrate/internal/refs"
)

// Viewer handles the read-only reference routes.
type Viewer struct {
	store  refs.Store
	logger *slog.Logger
}

// NewViewer creates a viewer over the given store.
func NewViewer(store refs.Store, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{store: store, logger: logger}
}

// RegisterRoutes registers the reference views on the given ServeMux.
func (v *Viewer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/refs", v.handleIndex)
	mux.HandleFunc("/refs/", v.handleRef)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>References</title></head>
<body>
<h1>References</h1>
{{if .Names}}
<ul>
{{range .Names}}<li><a href="/refs/{{.}}">{{.}}</a></li>
{{end}}</ul>
{{else}}
<p>No references stored.</p>
{{end}}
</body>
</html>
`))

var refTemplate = template.Must(template.New("ref").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Name}}</title></head>
<body>
<p><a href="/refs">&larr; all references</a></p>
<h1>{{.Name}}</h1>
<p>version {{.Version}}, updated {{.Updated}}</p>
{{if .Metadata}}
<dl>
{{range $k, $v := .Metadata}}<dt>{{$k}}</dt><dd>{{$v}}</dd>
{{end}}</dl>
{{end}}
<hr>
{{.Content}}
</body>
</html>
`))

func (v *Viewer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	names, err := v.store.List(r.Context(), "")
	if err != nil {
		v.logger.Error("listing references", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Names []string }{names}); err != nil {
		v.logger.Error("rendering reference index", "error", err)
	}
}

func (v *Viewer) handleRef(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/refs/")
	if name == "" {
		http.Redirect(w, r, "/refs", http.StatusFound)
		return
	}

	ref, err := v.store.Read(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, refs.ErrNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, refs.ErrInvalidName):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			v.logger.Error("reading reference", "ref", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(ref.Content), &htmlBuf); err != nil {
		v.logger.Error("converting markdown", "ref", name, "error", err)
		htmlBuf.Reset()
		htmlBuf.WriteString("<p>Failed to render content.</p>")
	}

	data := struct {
		Name     string
		Version  int
		Updated  string
		Metadata map[string]string
		Content  template.HTML
	}{
		Name:     ref.Name,
		Version:  ref.Version,
		Updated:  ref.UpdatedAt.Format("2006-01-02 15:04:05 MST"),
		Metadata: ref.Metadata,
		Content:  template.HTML(htmlBuf.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := refTemplate.Execute(w, data); err != nil {
		v.logger.Error("rendering reference page", "ref", name, "error", err)
	}
}
