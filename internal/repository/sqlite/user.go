package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, email, password, name`

// CreateUser inserts user and sets user.ID.
//
// The UNIQUE indexes on email and google_id are the final word on duplicates:
// the service checks first for a friendly error, but two concurrent
// registrations can both pass that check. The loser lands here as a
// constraint violation and is reported as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (google_id, email, password, name) VALUES (?, ?, ?, ?)`,
		user.GoogleID,
		user.Email,
		user.PasswordHash,
		user.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by internal id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by google id: %w", err)
	}
	return u, nil
}

// getUser runs a single-row user query. NULL columns scan into nil pointers.
func (db *DB) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var (
		u        model.User
		googleID sql.NullString
		password sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&googleID,
		&u.Email,
		&password,
		&u.Name,
	)
	if err != nil {
		return nil, err
	}
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	if password.Valid {
		u.PasswordHash = &password.String
	}
	return &u, nil
}
