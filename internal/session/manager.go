package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sakif/todo-list/internal/model"
)

// DefaultTTL is the fixed lifetime of a session, counted from login.
const DefaultTTL = 24 * time.Hour

// tokenBytes is the amount of randomness in a session token (hex encoded to
// twice as many characters).
const tokenBytes = 32

// Manager issues, resolves and ends sessions on top of a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a Manager. A non-positive ttl falls back to DefaultTTL.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a new session for userID.
func (m *Manager) Start(ctx context.Context, userID int64) (*model.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("session: generating token: %w", err)
	}

	now := m.now().UTC()
	s := &model.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("session: storing session for user %d: %w", userID, err)
	}
	return s, nil
}

// Resolve returns the live session for token, or (nil, nil) when the token
// is empty, unknown or expired. Expired sessions are deleted on sight.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("session: looking up session: %w", err)
	}
	if s == nil {
		return nil, nil
	}

	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("session: deleting expired session: %w", err)
		}
		return nil, nil
	}
	return s, nil
}

// End destroys the session for token. Ending an unknown session succeeds.
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("session: deleting session: %w", err)
	}
	return nil
}

// Prune deletes every expired session and reports how many were removed.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("session: pruning expired sessions: %w", err)
	}
	return n, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
