package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/auth"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
	"github.com/sakif/todo-list/internal/session"
)

// msgInvalidCredentials is the only thing a failed local login ever says, so
// it does not reveal which emails have accounts.
const msgInvalidCredentials = "Invalid email or password"

// AuthService handles registration, the two login paths, logout and the
// "who am I" lookup.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/create user records
//   - sessions   *session.Manager          → issue and end server-side sessions
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - observer   AuthObserver              → metrics (may be nil)
//   - logger     *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	sessions  *session.Manager
	passwords *auth.PasswordService
	names     *nameSanitizer
	observer  AuthObserver
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions *session.Manager,
	passwords *auth.PasswordService,
	observer AuthObserver,
	logger *slog.Logger,
) *AuthService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		names:     newNameSanitizer(),
		observer:  observer,
		logger:    logger,
	}
}

// AuthResult bundles the user and the session just created for them, so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a password account and logs it in.
//
// The email check up front gives the friendly "User already exists" in the
// common case; the unique index in the store catches the race where two
// registrations pass the check at once, and reports the same Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	name, plain := s.names.Check(in.Name)

	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, apperror.ValidationFailed("email", "A valid email is required")
	case in.Password == "":
		return nil, apperror.ValidationFailed("password", "Password is required")
	case len(in.Password) > auth.MaxPasswordBytes:
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	case name == "":
		return nil, apperror.ValidationFailed("name", "Name is required")
	case !plain:
		return nil, apperror.ValidationFailed("name", "Name must not contain HTML markup")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.observer.AuthEvent("register", outcomeFailure)
		return nil, apperror.Conflict("User already exists")
	case !errors.Is(err, apperror.ErrNotFound):
		s.observer.AuthEvent("register", outcomeError)
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		s.observer.AuthEvent("register", outcomeError)
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, Name: name, PasswordHash: &hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.observer.AuthEvent("register", outcomeFailure)
			return nil, err
		}
		s.observer.AuthEvent("register", outcomeError)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	sess, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		s.observer.AuthEvent("register", outcomeError)
		return nil, fmt.Errorf("service/auth: starting session for user %d: %w", user.ID, err)
	}

	s.observer.AuthEvent("register", outcomeSuccess)
	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Session: sess}, nil
}

// LoginLocal checks an email/password pair.
//
// Every failure (unknown email, account without a password, wrong password)
// returns the same Unauthenticated error, and the first two still run a
// bcrypt comparison so the response time doesn't give them away either.
func (s *AuthService) LoginLocal(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.observer.AuthEvent("local", outcomeError)
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if user == nil || !user.HasPassword() || len(password) > auth.MaxPasswordBytes {
		s.passwords.VerifyDummy(password)
		return nil, s.loginFailed(user)
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, s.loginFailed(user)
		}
		s.observer.AuthEvent("local", outcomeError)
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	sess, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		s.observer.AuthEvent("local", outcomeError)
		return nil, fmt.Errorf("service/auth: starting session for user %d: %w", user.ID, err)
	}

	s.observer.AuthEvent("local", outcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("userID", user.ID), slog.String("method", "local"))
	return &AuthResult{User: user, Session: sess}, nil
}

func (s *AuthService) loginFailed(user *model.User) error {
	s.observer.AuthEvent("local", outcomeFailure)
	if user != nil {
		s.logger.Info("login failed", slog.Int64("userID", user.ID))
	} else {
		s.logger.Info("login failed for unknown email")
	}
	return apperror.Unauthenticated(msgInvalidCredentials)
}

// LoginFederated logs in the account bound to a Google profile, creating it on
// first login. Calling it again with the same profile returns the same user.
//
// Accounts are matched by Google id only. If the profile's email already
// belongs to a local account the creation fails with Conflict: linking the
// two would let whoever controls the Google account into the local one.
func (s *AuthService) LoginFederated(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil || profile.Subject == "" {
		return nil, errors.New("service/auth: federated profile must have a subject")
	}

	user, err := s.findOrCreateFederated(ctx, profile)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.observer.AuthEvent("google", outcomeFailure)
			s.logger.Warn("google login email already registered locally")
			return nil, err
		}
		s.observer.AuthEvent("google", outcomeError)
		return nil, err
	}

	sess, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		s.observer.AuthEvent("google", outcomeError)
		return nil, fmt.Errorf("service/auth: starting session for user %d: %w", user.ID, err)
	}

	s.observer.AuthEvent("google", outcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("userID", user.ID), slog.String("method", "google"))
	return &AuthResult{User: user, Session: sess}, nil
}

func (s *AuthService) findOrCreateFederated(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	user, err := s.users.GetUserByGoogleID(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google user: %w", err)
	}

	name, plain := s.names.Check(profile.Name)
	if name == "" || !plain {
		name, _, _ = strings.Cut(profile.Email, "@")
	}
	googleID := profile.Subject
	user = &model.User{GoogleID: &googleID, Email: profile.Email, Name: name}

	err = s.users.CreateUser(ctx, user)
	if err == nil {
		s.logger.Info("user registered", slog.Int64("userID", user.ID), slog.String("method", "google"))
		return user, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, fmt.Errorf("service/auth: creating google user: %w", err)
	}

	// A concurrent first login for the same Google account wins the insert;
	// use its row. Otherwise the conflict is on the email.
	if existing, lookupErr := s.users.GetUserByGoogleID(ctx, profile.Subject); lookupErr == nil {
		return existing, nil
	}
	return nil, err
}

// Logout ends the session behind token. It succeeds when there is no session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.End(ctx, token); err != nil {
		s.observer.AuthEvent("logout", outcomeError)
		return fmt.Errorf("service/auth: ending session: %w", err)
	}
	s.observer.AuthEvent("logout", outcomeSuccess)
	return nil
}

// EndSession drops a session that a fresh login is replacing. Unlike Logout
// it records no auth event.
func (s *AuthService) EndSession(ctx context.Context, token string) error {
	if err := s.sessions.End(ctx, token); err != nil {
		return fmt.Errorf("service/auth: ending replaced session: %w", err)
	}
	return nil
}

// CurrentUser loads the user a session belongs to. It returns (nil, nil) when
// the user no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}
	return user, nil
}
