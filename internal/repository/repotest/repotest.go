// Package repotest holds the behavioural contract every storage backend must
// satisfy. Backends call Run from their own tests with a factory that hands
// out a fresh, empty store per subtest.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
	"github.com/sakif/todo-list/internal/session"
)

// Backend is what a storage implementation provides.
type Backend struct {
	Users    repository.UserRepository
	Todos    repository.TodoRepository
	Sessions session.Store
}

// Factory returns an empty backend. It should register its own cleanup.
type Factory func(t *testing.T) Backend

// Run executes the full contract against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newBackend) })
	t.Run("Todos", func(t *testing.T) { testTodos(t, newBackend) })
	t.Run("Sessions", func(t *testing.T) {
		RunSessions(t, func(t *testing.T) (session.Store, int64) {
			b := newBackend(t)
			u := CreateUser(t, b.Users, uniqueEmail("s"), "S")
			return b.Sessions, u.ID
		})
	})
}

// SessionFactory returns an empty session store plus a user id that sessions
// may reference. Stores without foreign keys can return any id.
type SessionFactory func(t *testing.T) (session.Store, int64)

// RunSessions executes the session store part of the contract on its own, for
// stores that live outside a relational backend.
func RunSessions(t *testing.T, newStore SessionFactory) {
	testSessions(t, newStore)
}

// uniqueEmail keeps postgres runs, which share one database, from colliding.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// CreateUser is a helper that registers a password user and fails the test on error.
func CreateUser(t *testing.T, users repository.UserRepository, email, name string) *model.User {
	t.Helper()
	hash := "$2a$04$not-a-real-hash"
	u := &model.User{Email: email, Name: name, PasswordHash: &hash}
	require.NoError(t, users.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

// =========================================================================
// USERS
// =========================================================================

func testUsers(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("create then get by id and email", func(t *testing.T) {
		b := newBackend(t)
		email := uniqueEmail("ann")
		u := CreateUser(t, b.Users, email, "Ann")

		got, err := b.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, email, got.Email)
		assert.Equal(t, "Ann", got.Name)
		assert.Nil(t, got.GoogleID)
		require.NotNil(t, got.PasswordHash)
		assert.Equal(t, *u.PasswordHash, *got.PasswordHash)

		byEmail, err := b.Users.GetUserByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		b := newBackend(t)
		email := uniqueEmail("dup")
		CreateUser(t, b.Users, email, "First")

		hash := "x"
		err := b.Users.CreateUser(ctx, &model.User{Email: email, Name: "Second", PasswordHash: &hash})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)
	})

	t.Run("federated user round trip", func(t *testing.T) {
		b := newBackend(t)
		googleID := fmt.Sprintf("g-%d", time.Now().UnixNano())
		u := &model.User{GoogleID: &googleID, Email: uniqueEmail("fed"), Name: "Fed"}
		require.NoError(t, b.Users.CreateUser(ctx, u))

		got, err := b.Users.GetUserByGoogleID(ctx, googleID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		require.NotNil(t, got.GoogleID)
		assert.Equal(t, googleID, *got.GoogleID)
		assert.False(t, got.HasPassword())

		dup := &model.User{GoogleID: &googleID, Email: uniqueEmail("fed2"), Name: "Fed"}
		assert.True(t, errors.Is(b.Users.CreateUser(ctx, dup), apperror.ErrConflict))
	})

	t.Run("missing users are not found", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.Users.GetUserByID(ctx, 987654321)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "by id: %v", err)

		_, err = b.Users.GetUserByEmail(ctx, uniqueEmail("nobody"))
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "by email: %v", err)

		_, err = b.Users.GetUserByGoogleID(ctx, "no-such-google-id")
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "by google id: %v", err)
	})
}

// =========================================================================
// TODOS
// =========================================================================

func testTodos(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("create sets id, timestamp and completed=false", func(t *testing.T) {
		b := newBackend(t)
		u := CreateUser(t, b.Users, uniqueEmail("c"), "C")

		todo := &model.Todo{Text: "Buy milk", UserID: u.ID, Completed: true}
		require.NoError(t, b.Todos.CreateTodo(ctx, todo))

		assert.NotZero(t, todo.ID)
		assert.False(t, todo.Completed)
		assert.WithinDuration(t, time.Now(), todo.CreatedAt, time.Minute)
	})

	t.Run("list is newest first and never nil", func(t *testing.T) {
		b := newBackend(t)
		u := CreateUser(t, b.Users, uniqueEmail("l"), "L")

		empty, err := b.Todos.ListTodos(ctx, u.ID)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		require.NoError(t, b.Todos.CreateTodo(ctx, &model.Todo{Text: "Buy milk", UserID: u.ID}))
		require.NoError(t, b.Todos.CreateTodo(ctx, &model.Todo{Text: "Walk dog", UserID: u.ID}))

		todos, err := b.Todos.ListTodos(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, "Walk dog", todos[0].Text)
		assert.Equal(t, "Buy milk", todos[1].Text)
	})

	t.Run("update applies only present fields", func(t *testing.T) {
		b := newBackend(t)
		u := CreateUser(t, b.Users, uniqueEmail("u"), "U")
		todo := &model.Todo{Text: "draft", UserID: u.ID}
		require.NoError(t, b.Todos.CreateTodo(ctx, todo))

		done := true
		got, err := b.Todos.UpdateTodo(ctx, u.ID, todo.ID, model.TodoPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, "draft", got.Text)

		text := "final"
		got, err = b.Todos.UpdateTodo(ctx, u.ID, todo.ID, model.TodoPatch{Text: &text})
		require.NoError(t, err)
		assert.Equal(t, "final", got.Text)
		assert.True(t, got.Completed, "completed must survive a text-only patch")
		assert.Equal(t, u.ID, got.UserID)
		assert.True(t, todo.CreatedAt.Equal(got.CreatedAt) ||
			todo.CreatedAt.Sub(got.CreatedAt).Abs() < time.Millisecond, "created_at must not change")

		got, err = b.Todos.UpdateTodo(ctx, u.ID, todo.ID, model.TodoPatch{})
		require.NoError(t, err)
		assert.Equal(t, "final", got.Text)

		todos, err := b.Todos.ListTodos(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "final", todos[0].Text)
	})

	t.Run("other users' todos are invisible", func(t *testing.T) {
		b := newBackend(t)
		alice := CreateUser(t, b.Users, uniqueEmail("alice"), "Alice")
		bob := CreateUser(t, b.Users, uniqueEmail("bob"), "Bob")

		todo := &model.Todo{Text: "alice's", UserID: alice.ID}
		require.NoError(t, b.Todos.CreateTodo(ctx, todo))

		bobs, err := b.Todos.ListTodos(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, bobs)

		text := "hijacked"
		_, err = b.Todos.UpdateTodo(ctx, bob.ID, todo.ID, model.TodoPatch{Text: &text})
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

		deleted, err := b.Todos.DeleteTodo(ctx, bob.ID, todo.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		alices, err := b.Todos.ListTodos(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, alices, 1)
		assert.Equal(t, "alice's", alices[0].Text)
	})

	t.Run("update of a missing id is not found", func(t *testing.T) {
		b := newBackend(t)
		u := CreateUser(t, b.Users, uniqueEmail("m"), "M")

		_, err := b.Todos.UpdateTodo(ctx, u.ID, 987654321, model.TodoPatch{})
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b := newBackend(t)
		u := CreateUser(t, b.Users, uniqueEmail("d"), "D")
		todo := &model.Todo{Text: "gone soon", UserID: u.ID}
		require.NoError(t, b.Todos.CreateTodo(ctx, todo))

		deleted, err := b.Todos.DeleteTodo(ctx, u.ID, todo.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = b.Todos.DeleteTodo(ctx, u.ID, todo.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		todos, err := b.Todos.ListTodos(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, todos)
	})
}

// =========================================================================
// SESSIONS
// =========================================================================

func testSessions(t *testing.T, newStore SessionFactory) {
	ctx := context.Background()

	newSession := func(token string, userID int64, expiresAt time.Time) *model.Session {
		return &model.Session{
			Token:     token,
			UserID:    userID,
			CreatedAt: expiresAt.Add(-24 * time.Hour),
			ExpiresAt: expiresAt,
		}
	}

	t.Run("put, get, delete", func(t *testing.T) {
		store, userID := newStore(t)
		token := fmt.Sprintf("tok-%d", time.Now().UnixNano())
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

		require.NoError(t, store.Put(ctx, newSession(token, userID, expires)))

		got, err := store.Get(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserID)
		assert.True(t, expires.Equal(got.ExpiresAt), "expires_at %v != %v", got.ExpiresAt, expires)

		require.NoError(t, store.Delete(ctx, token))
		got, err = store.Get(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, got)

		// Deleting again is fine.
		assert.NoError(t, store.Delete(ctx, token))
	})

	t.Run("unknown token is nil without error", func(t *testing.T) {
		store, _ := newStore(t)
		got, err := store.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete expired keeps live sessions", func(t *testing.T) {
		store, userID := newStore(t)
		now := time.Now()
		suffix := now.UnixNano()
		stale := fmt.Sprintf("stale-%d", suffix)
		live := fmt.Sprintf("live-%d", suffix)

		require.NoError(t, store.Put(ctx, newSession(stale, userID, now.Add(-time.Minute))))
		require.NoError(t, store.Put(ctx, newSession(live, userID, now.Add(time.Hour))))

		n, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		got, err := store.Get(ctx, stale)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = store.Get(ctx, live)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}
