package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/todo-list/internal/auth"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/service"
)

// AuthHandler serves the /auth routes: local register/login, the Google
// OAuth round trip, logout and the current-user lookup.
//
// DEPENDENCY CHAIN:
//   - svc     *service.AuthService → accounts and sessions
//   - google  auth.OAuthProvider   → code exchange; nil disables Google login
//   - states  *auth.StateSigner    → signs and checks the OAuth state parameter
//   - cookies auth.Cookies         → session and state cookies
type AuthHandler struct {
	svc       *service.AuthService
	google    auth.OAuthProvider
	states    *auth.StateSigner
	cookies   auth.Cookies
	clientURL string
	logger    *slog.Logger
}

// AuthHandlerConfig groups NewAuthHandler's optional collaborators.
type AuthHandlerConfig struct {
	Google    auth.OAuthProvider // nil when Google login is not configured
	States    *auth.StateSigner
	Cookies   auth.Cookies
	ClientURL string // where the OAuth callback sends the browser afterwards
}

func NewAuthHandler(svc *service.AuthService, cfg AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:       svc,
		google:    cfg.Google,
		states:    cfg.States,
		cookies:   cfg.Cookies,
		clientURL: cfg.ClientURL,
		logger:    logger,
	}
}

// GoogleEnabled reports whether the Google routes should be mounted.
func (h *AuthHandler) GoogleEnabled() bool {
	return h.google != nil && h.states != nil
}

// userResponse is the body of every endpoint that returns the account.
type userResponse struct {
	User *model.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a password account and logs it in.
//
// HTTP: POST /auth/register  {email, password, name} → 200 {"user": ...}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.startSession(w, r, res.Session)
	writeJSON(w, http.StatusOK, userResponse{User: res.User})
}

// HandleLogin checks an email/password pair and starts a session.
//
// HTTP: POST /auth/login  {email, password} → 200 {"user": ...} | 401
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.LoginLocal(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.startSession(w, r, res.Session)
	writeJSON(w, http.StatusOK, userResponse{User: res.User})
}

// HandleLogout ends the caller's session, if there is one.
//
// HTTP: POST /auth/logout → 200 {"message": "Logged out successfully"}
//
// The cookie is cleared even when the store fails, so the browser stops
// presenting a token the server may still hold.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), auth.SessionToken(r))
	h.cookies.ClearSession(w)
	if err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Logout failed",
		})
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// HandleUser returns the logged-in user.
//
// HTTP: GET /auth/user → 200 {"user": ...} | 401 {"message": "Not authenticated"}
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		// The session outlived its account.
		writeNotAuthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func writeNotAuthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthenticated",
		Message: "Not authenticated",
	})
}

// HandleGoogleLogin sends the browser to Google's consent page.
//
// HTTP: GET /auth/google
//
// CSRF PROTECTION VIA STATE:
// A fresh nonce goes into a short-lived HttpOnly cookie, and a signed,
// expiring token carrying the same nonce goes to Google as `state`. The
// callback accepts only a state that verifies and matches the cookie, so a
// callback URL crafted by someone else fails.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	nonce, state, err := h.states.Issue()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.cookies.SetState(w, nonce)
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth round trip.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state parameter against the nonce cookie
//  2. Bail out if Google reported an error (e.g. the user denied access)
//  3. Exchange the code for the Google profile
//  4. Log in (or create) the federated account and set the session cookie
//  5. Redirect to the client app; every failure redirects with ?auth=failed
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nonce := auth.StateNonce(r)
	h.cookies.ClearState(w)

	if err := h.states.Verify(q.Get("state"), nonce); err != nil {
		h.logger.Warn("oauth callback: invalid state", slog.String("error", err.Error()))
		h.redirectFailed(w, r)
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("oauth callback: provider returned error", slog.String("error", errParam))
		h.redirectFailed(w, r)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("oauth callback: missing code")
		h.redirectFailed(w, r)
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		h.redirectFailed(w, r)
		return
	}

	res, err := h.svc.LoginFederated(r.Context(), profile)
	if err != nil {
		h.logger.Error("oauth callback: login failed", slog.String("error", err.Error()))
		h.redirectFailed(w, r)
		return
	}

	h.startSession(w, r, res.Session)
	http.Redirect(w, r, h.clientURL, http.StatusSeeOther)
}

// startSession ends whatever session the request arrived with and sets the
// cookie for the new one. Failing to end the old one doesn't fail the login.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, s *model.Session) {
	if old := auth.SessionToken(r); old != "" && old != s.Token {
		if err := h.svc.EndSession(r.Context(), old); err != nil {
			h.logger.Warn("ending previous session failed", slog.String("error", err.Error()))
		}
	}
	h.cookies.SetSession(w, s)
}

func (h *AuthHandler) redirectFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, failureURL(h.clientURL), http.StatusSeeOther)
}

// failureURL appends auth=failed to the client URL, keeping any query it has.
func failureURL(clientURL string) string {
	u, err := url.Parse(clientURL)
	if err != nil {
		return clientURL + "?auth=failed"
	}
	q := u.Query()
	q.Set("auth", "failed")
	u.RawQuery = q.Encode()
	return u.String()
}
