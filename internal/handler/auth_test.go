package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/auth"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/service"
	"github.com/sakif/todo-list/internal/session"
)

// brokenStore fails every write, like a database that has gone away.
type brokenStore struct{}

func (brokenStore) Put(context.Context, *model.Session) error { return errors.New("store down") }
func (brokenStore) Get(context.Context, string) (*model.Session, error) {
	return nil, errors.New("store down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("store down") }
func (brokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("store down")
}

func newAuthHandler(t *testing.T, store session.Store) *AuthHandler {
	t.Helper()
	mgr := session.NewManager(store, time.Hour)
	svc := service.NewAuthService(nil, mgr, auth.NewPasswordService(4), nil, discardLogger())
	return NewAuthHandler(svc, AuthHandlerConfig{ClientURL: "http://localhost:5173"}, discardLogger())
}

func TestLogoutStoreFailure(t *testing.T) {
	h := newAuthHandler(t, brokenStore{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"Logout failed"}`, rec.Body.String())

	// The cookie is dropped anyway.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLogoutWithoutSession(t *testing.T) {
	h := newAuthHandler(t, session.NewMemoryStore())

	rec := httptest.NewRecorder()
	h.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())
}

func TestUserWithoutSession(t *testing.T) {
	h := newAuthHandler(t, session.NewMemoryStore())

	rec := httptest.NewRecorder()
	h.HandleUser(rec, httptest.NewRequest(http.MethodGet, "/auth/user", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthenticated","message":"Not authenticated"}`, rec.Body.String())
}

func TestGoogleDisabled(t *testing.T) {
	h := newAuthHandler(t, session.NewMemoryStore())
	assert.False(t, h.GoogleEnabled())
}
