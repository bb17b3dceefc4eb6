package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository/repotest"
)

// newTestDB returns a fresh in-memory database. ":memory:" is coherent here
// only because New pins the pool to a single connection.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Backend {
		db := newTestDB(t)
		return repotest.Backend{
			Users:    db,
			Todos:    db,
			Sessions: db.Sessions(),
		}
	})
}

// =========================================================================
// SQLITE-SPECIFIC BEHAVIOUR
// =========================================================================

func TestTodoRequiresExistingUser(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateTodo(context.Background(), &model.Todo{Text: "orphan", UserID: 42})
	assert.Error(t, err, "foreign keys must be enforced")
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")
	ctx := context.Background()

	db, err := New(path, Options{})
	require.NoError(t, err)
	u := repotest.CreateUser(t, db, "persist@example.com", "Persist")
	require.NoError(t, db.CreateTodo(ctx, &model.Todo{Text: "still here", UserID: u.ID}))
	require.NoError(t, db.Close())

	// Opening again must not trip over the existing schema.
	db, err = New(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	todos, err := db.ListTodos(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "still here", todos[0].Text)
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDefaultQueryTimeout(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, DefaultQueryTimeout, db.queryTimeout)
}
