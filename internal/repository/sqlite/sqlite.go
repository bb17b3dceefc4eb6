// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: a single file next to the binary, no server to
// install or manage. It is the default backend for a single-user deployment and
// for tests (":memory:").
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, so you need a C compiler and cross-compilation gets
// painful. modernc.org/sqlite is a pure Go translation of SQLite.
//
// CONNECTION POLICY:
// sql.DB is a pool, but SQLite only ever has one writer. We cap the pool at one
// connection so writes queue in Go instead of failing with SQLITE_BUSY. It also
// keeps ":memory:" coherent: every new connection to ":memory:" is a brand new,
// empty database.
//
// Every statement runs under a per-query timeout (Options.QueryTimeout).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultQueryTimeout bounds a single statement when Options.QueryTimeout is zero.
const DefaultQueryTimeout = 5 * time.Second

// Options tune the connection.
type Options struct {
	// QueryTimeout bounds every statement. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration
}

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.UserRepository and repository.TodoRepository;
// Sessions() exposes the session store that shares the same file.
type DB struct {
	conn         *sql.DB
	queryTimeout time.Duration
}

// New opens the SQLite database at dbPath and creates the schema if needed.
//
// dbPath examples:
//   - "data/todo.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
func New(dbPath string, opts Options) (*DB, error) {
	// "sqlite" is the driver name registered by modernc.org/sqlite's init().
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. todos.user_id and
	// sessions.user_id depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	db := &DB{conn: conn, queryTimeout: timeout}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database answers. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// withTimeout derives the per-statement context.
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// migrate creates the tables on first open. CREATE ... IF NOT EXISTS makes it
// safe to run on every start. There is no versioned migration machinery: the
// schema has not changed since the first release.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			google_id TEXT UNIQUE,
			email     TEXT NOT NULL UNIQUE,
			password  TEXT,
			name      TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS todos (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			text       TEXT NOT NULL,
			completed  BOOLEAN NOT NULL DEFAULT 0,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos(user_id, created_at DESC, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating todos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE (or PRIMARY KEY)
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Primary code only: fall back to the message.
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
