package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
)

func newTestTodoService() (*TodoService, *fakeTodoRepo, *recordingObserver) {
	repo := newFakeTodoRepo()
	obs := &recordingObserver{}
	return NewTodoService(repo, obs, discardLogger()), repo, obs
}

const (
	alice int64 = 1
	bob   int64 = 2
)

// =========================================================================
// CREATE / LIST
// =========================================================================

func TestCreateThenList_NewestFirst(t *testing.T) {
	svc, _, obs := newTestTodoService()
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, "Buy milk")
	require.NoError(t, err)
	walk, err := svc.Create(ctx, alice, "Walk dog")
	require.NoError(t, err)
	assert.False(t, walk.Completed)
	assert.Equal(t, alice, walk.UserID)

	todos, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "Walk dog", todos[0].Text)
	assert.Equal(t, "Buy milk", todos[1].Text)
	assert.Equal(t, []string{"create", "create", "list"}, obs.todoOp)
}

func TestCreate_KeepsTextAsSent(t *testing.T) {
	svc, _, _ := newTestTodoService()

	todo, err := svc.Create(context.Background(), alice, "  padded  ")
	require.NoError(t, err)
	assert.Equal(t, "  padded  ", todo.Text)
}

func TestCreate_RejectsBlankText(t *testing.T) {
	svc, repo, _ := newTestTodoService()

	for _, text := range []string{"", " ", "\t\n"} {
		_, err := svc.Create(context.Background(), alice, text)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "text %q: %v", text, err)
	}
	assert.Empty(t, repo.todos)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	svc, _, _ := newTestTodoService()

	todos, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUpdate_RoundTrip(t *testing.T) {
	svc, _, _ := newTestTodoService()
	ctx := context.Background()

	todo, err := svc.Create(ctx, alice, "draft")
	require.NoError(t, err)

	text := "final"
	_, err = svc.Update(ctx, alice, todo.ID, model.TodoPatch{Text: &text})
	require.NoError(t, err)

	todos, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "final", todos[0].Text)
}

func TestOwnershipIsolation(t *testing.T) {
	svc, _, _ := newTestTodoService()
	ctx := context.Background()

	todo, err := svc.Create(ctx, alice, "alice's")
	require.NoError(t, err)

	bobs, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	done := true
	updated, err := svc.Update(ctx, bob, todo.ID, model.TodoPatch{Completed: &done})
	require.NoError(t, err)
	assert.Nil(t, updated)

	// A foreign id looks exactly like one that never existed.
	missing, err := svc.Update(ctx, bob, 999, model.TodoPatch{Completed: &done})
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, svc.Delete(ctx, bob, todo.ID))

	alices, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, alices, 1)
	assert.False(t, alices[0].Completed)
}

func TestDelete_Idempotent(t *testing.T) {
	svc, _, _ := newTestTodoService()
	ctx := context.Background()

	todo, err := svc.Create(ctx, alice, "gone")
	require.NoError(t, err)

	assert.NoError(t, svc.Delete(ctx, alice, todo.ID))
	assert.NoError(t, svc.Delete(ctx, alice, todo.ID))
	assert.NoError(t, svc.Delete(ctx, alice, 999))
}

func TestRepositoryErrorsAreWrapped(t *testing.T) {
	svc, repo, _ := newTestTodoService()
	repo.err = errors.New("disk full")
	ctx := context.Background()

	_, err := svc.List(ctx, alice)
	assert.ErrorIs(t, err, repo.err)
	_, err = svc.Create(ctx, alice, "x")
	assert.ErrorIs(t, err, repo.err)
	_, err = svc.Update(ctx, alice, 1, model.TodoPatch{})
	assert.ErrorIs(t, err, repo.err)
	assert.ErrorIs(t, svc.Delete(ctx, alice, 1), repo.err)
}
