package session_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/repository/repotest"
	"github.com/sakif/todo-list/internal/session"
)

func TestMemoryStoreContract(t *testing.T) {
	repotest.RunSessions(t, func(t *testing.T) (session.Store, int64) {
		return session.NewMemoryStore(), 1
	})
}

func TestBoltStoreContract(t *testing.T) {
	repotest.RunSessions(t, func(t *testing.T) (session.Store, int64) {
		store, err := session.NewBoltStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store, 1
	})
}
