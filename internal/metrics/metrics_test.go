package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest(http.MethodGet, "/api/todos", 200, 15*time.Millisecond)
	c.AuthEvent("local", "failure")
	c.AuthEvent("local", "failure")
	c.TodoOperation("create")
	c.ObserveSessionsSwept(3)

	body := scrape(t, reg)
	assert.Contains(t, body, `todo_http_requests_total{method="GET",route="/api/todos",status="200"} 1`)
	assert.Contains(t, body, `todo_http_request_duration_seconds_count{method="GET",route="/api/todos"} 1`)
	assert.Contains(t, body, `todo_auth_events_total{method="local",outcome="failure"} 2`)
	assert.Contains(t, body, `todo_todo_operations_total{op="create"} 1`)
	assert.Contains(t, body, `todo_sessions_swept_total 3`)
}

func TestNewCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
