// Package web embeds the browser client: one HTML template and the static
// files it loads. Embedding keeps the server a single self-contained binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageData is what the index template renders.
type PageData struct {
	Title         string
	GoogleEnabled bool
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// Static serves the embedded files under static/. Mount it with the URL
// prefix stripped, e.g. http.StripPrefix("/static/", web.Static()).
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path; "static" is a constant.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
