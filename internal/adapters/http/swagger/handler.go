// Package swagger serves the API reference: the embedded OpenAPI document, in
// YAML and JSON, and a ReDoc page that renders it.
package swagger

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/knadh/koanf/parsers/yaml"
)

// ErrServe is reported when the document cannot be rendered.
var ErrServe = errors.New("swagger serve failed")

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

type document struct {
	etag     string
	yamlBody []byte
	jsonBody []byte
	jsonErr  error
}

func newDocument(src []byte) *document {
	sum := sha256.Sum256(src)
	d := &document{
		etag:     `"` + hex.EncodeToString(sum[:8]) + `"`,
		yamlBody: src,
	}
	m, err := yaml.Parser().Unmarshal(src)
	if err == nil {
		d.jsonBody, err = json.Marshal(m)
	}
	if err != nil {
		d.jsonErr = fmt.Errorf("%w: %w", ErrServe, err)
	}
	return d
}

func (d *document) serve(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	w.Header().Set("ETag", d.etag)
	if r.Header.Get("If-None-Match") == d.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}

// Register attaches the API reference routes to mux.
// Routes:
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> embedded document
//	GET /openapi.json  -> same document as JSON
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	doc := newDocument(OpenAPI)

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		doc.serve(w, r, "application/yaml; charset=utf-8", doc.yamlBody)
	})

	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		if doc.jsonErr != nil {
			http.Error(w, doc.jsonErr.Error(), http.StatusInternalServerError)
			return
		}
		doc.serve(w, r, "application/json", doc.jsonBody)
	})
}

// ReDoc is loaded from its CDN and pointed at /openapi.yaml.
const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>PenaltyHub API Docs - ReDoc</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
