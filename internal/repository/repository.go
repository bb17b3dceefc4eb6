// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in the sqlite and postgres sub-packages.
package repository

import (
	"context"

	"github.com/sakif/todo-list/internal/model"
)

// UserRepository reads and creates user accounts.
//
// Lookups return an error wrapping apperror.ErrNotFound when no row matches.
// CreateUser returns apperror.ErrConflict when the email or Google id is
// already taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
}

// TodoRepository persists todo items. Every method except CreateTodo is
// scoped by owner: rows belonging to other users are invisible.
type TodoRepository interface {
	// ListTodos returns the owner's items, newest first.
	ListTodos(ctx context.Context, userID int64) ([]model.Todo, error)
	// CreateTodo inserts todo and fills in its ID and CreatedAt.
	CreateTodo(ctx context.Context, todo *model.Todo) error
	// UpdateTodo applies patch to the row matching both id and userID and
	// returns the resulting row, or apperror.ErrNotFound when nothing matched.
	UpdateTodo(ctx context.Context, userID, id int64, patch model.TodoPatch) (*model.Todo, error)
	// DeleteTodo removes the row matching both id and userID. Deleting a
	// missing or foreign row is not an error; the bool reports whether a row
	// was removed.
	DeleteTodo(ctx context.Context, userID, id int64) (bool, error)
}
