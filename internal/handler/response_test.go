package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/apperror"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        apperror.ValidationFailed("text", "Todo text is required"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"validation_error","message":"Todo text is required"}`,
		},
		{
			name:       "conflict is a bad request",
			err:        fmt.Errorf("registering: %w", apperror.Conflict("User already exists")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"conflict","message":"User already exists"}`,
		},
		{
			name:       "unauthenticated",
			err:        apperror.Unauthenticated("Invalid email or password"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthenticated","message":"Invalid email or password"}`,
		},
		{
			name:       "forbidden",
			err:        apperror.Forbidden("nope"),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"forbidden","message":"nope"}`,
		},
		{
			name:       "not found",
			err:        apperror.NotFoundMessage("Todo not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"not_found","message":"Todo not found"}`,
		},
		{
			name:       "unknown errors hide their text",
			err:        errors.New("sqlite: database is locked at /var/lib/todo.db"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error","message":"Server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, discardLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"text":"hi"}`},
		{name: "empty body", body: ``, wantErr: "Request body is required"},
		{name: "malformed", body: `{"text":`, wantErr: "Request body must be valid JSON"},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantErr: "must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "hi", p.Text)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTodoID(t *testing.T) {
	tests := []struct {
		param  string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.param)
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := todoID(req)
			if !tt.wantOK {
				assert.True(t, errors.Is(err, apperror.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFailureURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5173?auth=failed", failureURL("http://localhost:5173"))
	assert.Equal(t, "https://app.example.com/home?auth=failed&tab=1", failureURL("https://app.example.com/home?tab=1"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(stubPinger{}, discardLogger()).HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("down")}, discardLogger()).HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestAppIndex(t *testing.T) {
	h, err := NewAppHandler(false, discardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `<script src="/static/app.js"></script>`)
}
