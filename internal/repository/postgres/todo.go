package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
)

var _ repository.TodoRepository = (*DB)(nil)

func (db *DB) ListTodos(ctx context.Context, userID int64) ([]model.Todo, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, text, completed, user_id, created_at
		 FROM todos
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing todos for user %d: %w", userID, err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning todo row: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating todo rows: %w", err)
	}
	return todos, nil
}

// CreateTodo lets the database assign id and created_at.
func (db *DB) CreateTodo(ctx context.Context, todo *model.Todo) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO todos (text, completed, user_id)
		 VALUES ($1, false, $2)
		 RETURNING id, completed, created_at`,
		todo.Text,
		todo.UserID,
	).Scan(&todo.ID, &todo.Completed, &todo.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating todo: %w", err)
	}
	return nil
}

// UpdateTodo patches the owner's row in one statement. A NULL parameter keeps
// the column's current value.
func (db *DB) UpdateTodo(ctx context.Context, userID, id int64, patch model.TodoPatch) (*model.Todo, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var t model.Todo
	err := db.conn.QueryRowContext(ctx,
		`UPDATE todos
		 SET text = COALESCE($1, text), completed = COALESCE($2, completed)
		 WHERE id = $3 AND user_id = $4
		 RETURNING id, text, completed, user_id, created_at`,
		patch.Text,
		patch.Completed,
		id,
		userID,
	).Scan(&t.ID, &t.Text, &t.Completed, &t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("todo", id)
		}
		return nil, fmt.Errorf("postgres: updating todo %d: %w", id, err)
	}
	return &t, nil
}

func (db *DB) DeleteTodo(ctx context.Context, userID, id int64) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	return n > 0, nil
}
