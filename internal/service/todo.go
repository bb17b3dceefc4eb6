package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
)

// TodoService handles the todo operations of an authenticated user. Every
// method takes the caller's user id and passes it down; the repository scopes
// every statement by it.
type TodoService struct {
	repo     repository.TodoRepository
	observer TodoObserver
	logger   *slog.Logger
}

func NewTodoService(repo repository.TodoRepository, observer TodoObserver, logger *slog.Logger) *TodoService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &TodoService{repo: repo, observer: observer, logger: logger}
}

// List returns the user's todos, newest first.
func (s *TodoService) List(ctx context.Context, userID int64) ([]model.Todo, error) {
	todos, err := s.repo.ListTodos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/todo: listing todos: %w", err)
	}
	s.observer.TodoOperation("list")
	return todos, nil
}

// Create adds a todo. Whitespace-only text is rejected; otherwise the text is
// stored exactly as given.
func (s *TodoService) Create(ctx context.Context, userID int64, text string) (*model.Todo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "Todo text is required")
	}

	todo := &model.Todo{Text: text, UserID: userID}
	if err := s.repo.CreateTodo(ctx, todo); err != nil {
		return nil, fmt.Errorf("service/todo: creating todo: %w", err)
	}

	s.observer.TodoOperation("create")
	s.logger.Info("todo created", slog.Int64("userID", userID), slog.Int64("todoID", todo.ID))
	return todo, nil
}

// Update applies patch to one of the user's todos.
//
// Like Delete, an id that doesn't exist or belongs to someone else is a
// no-op: it returns (nil, nil), and the two cases are indistinguishable.
func (s *TodoService) Update(ctx context.Context, userID, id int64, patch model.TodoPatch) (*model.Todo, error) {
	todo, err := s.repo.UpdateTodo(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Debug("todo update matched nothing", slog.Int64("userID", userID), slog.Int64("todoID", id))
			return nil, nil
		}
		return nil, fmt.Errorf("service/todo: updating todo %d: %w", id, err)
	}

	s.observer.TodoOperation("update")
	s.logger.Info("todo updated", slog.Int64("userID", userID), slog.Int64("todoID", id))
	return todo, nil
}

// Delete removes one of the user's todos. Deleting an id that doesn't exist,
// or belongs to someone else, succeeds without doing anything.
func (s *TodoService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.repo.DeleteTodo(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("service/todo: deleting todo %d: %w", id, err)
	}

	s.observer.TodoOperation("delete")
	if deleted {
		s.logger.Info("todo deleted", slog.Int64("userID", userID), slog.Int64("todoID", id))
	}
	return nil
}
