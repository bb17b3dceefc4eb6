// Package postgres implements the repository interfaces on PostgreSQL via
// github.com/lib/pq.
//
// Unlike the sqlite backend, this package never touches the schema: the tables
// in schema.sql must exist before the server starts.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Schema is the DDL the backend expects. Tests apply it to a scratch database.
//
//go:embed schema.sql
var Schema string

const (
	DefaultQueryTimeout    = 5 * time.Second
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultConnectAttempts = 5

	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Options configure the pool and the startup ping. Zero values take the
// package defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	ConnectAttempts int
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = DefaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = DefaultMaxIdleConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = DefaultConnectAttempts
	}
	return o
}

// DB is a pooled PostgreSQL connection implementing the user and todo
// repositories.
type DB struct {
	conn         *sql.DB
	queryTimeout time.Duration
}

// New opens a pool for dsn and waits until the server answers a ping.
//
// The ping is retried with exponential backoff (200ms doubling, capped at 5s)
// because in container setups the database often comes up after the app.
// Statements are never retried.
func New(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (*DB, error) {
	opts = opts.withDefaults()

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := pingWithBackoff(ctx, conn, opts, logger); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, queryTimeout: opts.QueryTimeout}, nil
}

func pingWithBackoff(ctx context.Context, conn *sql.DB, opts Options, logger *slog.Logger) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, opts.QueryTimeout)
		err = conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == opts.ConnectAttempts {
			break
		}

		logger.Warn("postgres not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres: waiting for database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return fmt.Errorf("postgres: pinging database after %d attempts: %w", opts.ConnectAttempts, err)
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database answers. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// uniqueViolation is SQLSTATE unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
