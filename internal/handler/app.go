// Package handler contains the HTTP handlers: the JSON API under /auth and
// /api, the browser app page, and the health check.
//
// Handlers are the glue between HTTP and the services. They decode the
// request, call one service method, and encode the result or map the error.
// No business rules live here.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/todo-list/internal/web"
)

// AppHandler serves the single-page browser client.
// Templates are parsed once at construction and reused per request.
type AppHandler struct {
	templates     *template.Template
	googleEnabled bool
	logger        *slog.Logger
}

// NewAppHandler parses the embedded page template. googleEnabled controls
// whether the login view offers the Google button.
func NewAppHandler(googleEnabled bool, logger *slog.Logger) (*AppHandler, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return &AppHandler{
		templates:     tmpl,
		googleEnabled: googleEnabled,
		logger:        logger,
	}, nil
}

// HandleIndex renders the app shell; app.js takes over from there.
//
// HTTP: GET /
func (h *AppHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := web.PageData{
		Title:         "To-Do List",
		GoogleEnabled: h.googleEnabled,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleStatic serves the embedded JS and CSS under /static/.
func (h *AppHandler) HandleStatic() http.Handler {
	return http.StripPrefix("/static/", web.Static())
}
