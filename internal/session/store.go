// Package session manages server-side login sessions.
//
// A session is an opaque random token handed to the browser in an HttpOnly
// cookie and mapped, server side, to a user id. The mapping lives behind the
// Store interface so the lifecycle (issue, resolve, end, expire) does not
// depend on the HTTP layer or on any particular keyed store:
//
//   - MemoryStore:           process-local map, lost on restart
//   - BoltStore:             bbolt file, survives restarts without a database server
//   - sqlite / postgres:     a sessions table next to users and todos
package session

import (
	"context"
	"time"

	"github.com/sakif/todo-list/internal/model"
)

// Store is a keyed store of sessions.
//
// Get returns (nil, nil) when the token is unknown; expiry is the Manager's
// concern, so Get may return expired sessions. Delete of an unknown token is
// not an error.
type Store interface {
	Put(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, token string) (*model.Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes every session whose expiry is at or before now
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
