package web

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexTemplate(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	t.Run("google enabled shows button", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tmpl.ExecuteTemplate(&buf, "index", PageData{Title: "To-Do List", GoogleEnabled: true}))
		assert.Contains(t, buf.String(), `href="/auth/google"`)
		assert.Contains(t, buf.String(), "<title>To-Do List</title>")
	})

	t.Run("google disabled hides button", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tmpl.ExecuteTemplate(&buf, "index", PageData{Title: "To-Do List"}))
		assert.NotContains(t, buf.String(), `href="/auth/google"`)
	})
}

func TestStatic(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/static/", Static()))
	defer srv.Close()

	for _, name := range []string{"app.js", "style.css"} {
		resp, err := http.Get(srv.URL + "/static/" + name)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
		assert.NotEmpty(t, body, name)
	}

	resp, err := http.Get(srv.URL + "/static/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
