package auth

import (
	"net/http"
	"time"

	"github.com/sakif/todo-list/internal/model"
)

const (
	// SessionCookieName carries the opaque session token.
	SessionCookieName = "todo_session"
	// StateCookieName carries the OAuth nonce between /auth/google and the callback.
	StateCookieName = "oauth_state"
)

// Cookies writes and clears the cookies the auth flow uses.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: JavaScript can't read the token, so an XSS bug can't steal it
//   - SameSite=Lax: sent on top-level navigations (the OAuth redirect back from
//     Google) but not on cross-site subresource requests
//   - Secure: only over HTTPS; configurable because local development is plain HTTP
type Cookies struct {
	Secure bool
}

// SetSession writes the session cookie. It expires together with the session.
func (c Cookies) SetSession(w http.ResponseWriter, s *model.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession tells the browser to drop the session cookie.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookieName, "/")
}

// SetState writes the OAuth nonce cookie, scoped to the Google routes.
func (c Cookies) SetState(w http.ResponseWriter, nonce string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    nonce,
		Path:     "/auth/google",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearState drops the OAuth nonce cookie once the callback has used it.
func (c Cookies) ClearState(w http.ResponseWriter) {
	c.clear(w, StateCookieName, "/auth/google")
}

func (c Cookies) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// cookieValue returns the named cookie's value, or "" when absent.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SessionToken returns the session token the request carries, or "".
func SessionToken(r *http.Request) string {
	return cookieValue(r, SessionCookieName)
}

// StateNonce returns the OAuth nonce cookie's value, or "".
func StateNonce(r *http.Request) string {
	return cookieValue(r, StateCookieName)
}
