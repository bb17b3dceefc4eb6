package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
)

var _ repository.TodoRepository = (*DB)(nil)

// ListTodos returns the user's todos, newest first. id breaks ties between
// rows inserted within the same clock tick.
//
// The result is never nil: an empty list serializes as [] rather than null.
func (db *DB) ListTodos(ctx context.Context, userID int64) ([]model.Todo, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, text, completed, user_id, created_at
		 FROM todos
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos for user %d: %w", userID, err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo row: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating todo rows: %w", err)
	}

	return todos, nil
}

// CreateTodo inserts todo with completed=false and sets ID and CreatedAt.
func (db *DB) CreateTodo(ctx context.Context, todo *model.Todo) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	todo.Completed = false
	todo.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO todos (text, completed, user_id, created_at) VALUES (?, ?, ?, ?)`,
		todo.Text,
		todo.Completed,
		todo.UserID,
		todo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new todo id: %w", err)
	}
	todo.ID = id
	return nil
}

// UpdateTodo applies patch to the row matching both id and userID.
//
// COALESCE(?, column) keeps the stored value when the argument is NULL, so a
// nil pointer in the patch means "leave unchanged" and one statement covers
// every combination of fields. When the WHERE clause matches nothing (missing
// id, or someone else's todo) we report NotFound for both cases alike.
//
// SQLite counts matched rows in changes(), so an update that writes the same
// values still reports one affected row.
func (db *DB) UpdateTodo(ctx context.Context, userID, id int64, patch model.TodoPatch) (*model.Todo, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE todos
		 SET text = COALESCE(?, text), completed = COALESCE(?, completed)
		 WHERE id = ? AND user_id = ?`,
		patch.Text,
		patch.Completed,
		id,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("todo", id)
	}

	var t model.Todo
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, text, completed, user_id, created_at
		 FROM todos
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	).Scan(&t.ID, &t.Text, &t.Completed, &t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted between the two statements.
			return nil, apperror.NotFound("todo", id)
		}
		return nil, fmt.Errorf("sqlite: reading updated todo %d: %w", id, err)
	}

	return &t, nil
}

// DeleteTodo removes the row matching both id and userID.
func (db *DB) DeleteTodo(ctx context.Context, userID, id int64) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting todo %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
