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

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, email, password, name`

// CreateUser inserts user and sets user.ID. A unique violation on email or
// google_id is reported as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (google_id, email, password, name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		user.GoogleID,
		user.Email,
		user.PasswordHash,
		user.Name,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	u, err := db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("postgres: getting user by google id: %w", err)
	}
	return u, nil
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var (
		u        model.User
		googleID sql.NullString
		password sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(&u.ID, &googleID, &u.Email, &password, &u.Name)
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
