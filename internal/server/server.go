// Package server wires the application together and runs the HTTP server.
//
// COMPOSITION ROOT:
// Everything is constructed here, in New, and nowhere else:
//
//	config → database (sqlite | postgres) → repositories
//	       → session store (sql | bolt | memory) → session.Manager + Sweeper
//	       → services → handlers → routes
//
// Each layer receives only what it needs: services get repository
// interfaces, handlers get services, nothing below the handlers sees HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/todo-list/internal/auth"
	"github.com/sakif/todo-list/internal/config"
	"github.com/sakif/todo-list/internal/handler"
	"github.com/sakif/todo-list/internal/metrics"
	"github.com/sakif/todo-list/internal/middleware"
	"github.com/sakif/todo-list/internal/repository"
	"github.com/sakif/todo-list/internal/repository/postgres"
	sqliteRepo "github.com/sakif/todo-list/internal/repository/sqlite"
	"github.com/sakif/todo-list/internal/service"
	"github.com/sakif/todo-list/internal/session"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// database is what both relational backends provide.
type database interface {
	repository.UserRepository
	repository.TodoRepository
	handler.Pinger
	io.Closer
}

// Server owns every long-lived resource: the database, the session store and
// the sweeper goroutine. Close releases them in reverse order of creation.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *chi.Mux

	db            database
	sessionStore  session.Store
	closeSessions func() error
	sessions      *session.Manager
	sweeper       *session.Sweeper
	google        auth.OAuthProvider

	registry  *prometheus.Registry
	collector *metrics.Collector
}

// Option customizes New.
type Option func(*Server)

// WithGoogleProvider replaces the Google provider built from config. Tests use
// it to point the OAuth flow at a fake.
func WithGoogleProvider(p auth.OAuthProvider) Option {
	return func(s *Server) { s.google = p }
}

// WithSessionStore uses store instead of the one Session.Store names. The
// caller keeps ownership; Close leaves it open.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) { s.sessionStore = store }
}

// New opens the stores and builds the router. The caller must Close the
// returned Server (Start does so itself).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector(s.registry)

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	s.db = db

	if err := s.openSessionStore(); err != nil {
		db.Close()
		return nil, err
	}
	s.sessions = session.NewManager(s.sessionStore, cfg.Session.TTL.Std())
	s.sweeper = session.NewSweeper(s.sessions, cfg.Session.SweepInterval.Std(), logger, s.collector)

	if s.google == nil && cfg.Google.Enabled() {
		s.google = auth.NewGoogleProvider(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Google.CallbackURL,
			auth.GoogleOptions{},
		)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openDatabase connects to the configured backend.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (database, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.PostgresDSN(), postgres.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime.Std(),
			QueryTimeout:    cfg.QueryTimeout.Std(),
			ConnectAttempts: cfg.ConnectAttempts,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil

	case config.DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		db, err := sqliteRepo.New(cfg.Path, sqliteRepo.Options{QueryTimeout: cfg.QueryTimeout.Std()})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openSessionStore picks the session backend. "sql" shares the database
// opened above; bolt gets its own file.
func (s *Server) openSessionStore() error {
	s.closeSessions = func() error { return nil }
	if s.sessionStore != nil {
		return nil
	}

	switch s.cfg.Session.Store {
	case config.SessionStoreSQL:
		switch db := s.db.(type) {
		case *sqliteRepo.DB:
			s.sessionStore = db.Sessions()
		case *postgres.DB:
			s.sessionStore = db.Sessions()
		default:
			return fmt.Errorf("database %T has no session table", s.db)
		}

	case config.SessionStoreBolt:
		if err := ensureDir(s.cfg.Session.BoltPath); err != nil {
			return err
		}
		store, err := session.NewBoltStore(s.cfg.Session.BoltPath)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		s.sessionStore = store
		s.closeSessions = store.Close

	case config.SessionStoreMemory:
		s.sessionStore = session.NewMemoryStore()

	default:
		return fmt.Errorf("unknown session store %q", s.cfg.Session.Store)
	}
	return nil
}

// ensureDir creates the parent directory of a database file. In-memory
// sqlite paths need nothing.
func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /                      → browser app (HTML)
//	GET    /static/*              → embedded JS/CSS
//	GET    /healthz               → store ping
//	GET    /metrics               → Prometheus
//	POST   /auth/register         → create account + session
//	POST   /auth/login            → email/password login
//	POST   /auth/logout           → end session
//	GET    /auth/user             → current user or 401
//	GET    /auth/google           → start OAuth (only when configured)
//	GET    /auth/google/callback  → finish OAuth (only when configured)
//	GET    /api/todos             → list            [session required]
//	POST   /api/todos             → create          [session required]
//	PUT    /api/todos/{id}        → update          [session required]
//	DELETE /api/todos/{id}        → delete          [session required]
//
// MIDDLEWARE ORDER:
// RequestID before Logger so every log line carries the id; Recoverer inside
// Logger so a panic is logged as the 500 it becomes; CORS before routing so
// preflights never hit a handler; LoadSession last so it runs per request
// with the id already assigned.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.CORS(s.cfg.Server.ClientURL))
	s.router.Use(middleware.Metrics(s.collector))
	s.router.Use(auth.LoadSession(s.sessions, s.logger))

	var states *auth.StateSigner
	if s.google != nil {
		var err error
		states, err = auth.NewStateSigner(s.cfg.Session.Secret)
		if err != nil {
			return fmt.Errorf("creating oauth state signer: %w", err)
		}
	}

	passwords := auth.NewPasswordService(s.cfg.Auth.BcryptCost)
	authService := service.NewAuthService(s.db, s.sessions, passwords, s.collector, s.logger)
	todoService := service.NewTodoService(s.db, s.collector, s.logger)

	authHandler := handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
		Google:    s.google,
		States:    states,
		Cookies:   auth.Cookies{Secure: s.cfg.Session.CookieSecure},
		ClientURL: s.cfg.Server.ClientURL,
	}, s.logger)
	todoHandler := handler.NewTodoHandler(todoService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	appHandler, err := handler.NewAppHandler(authHandler.GoogleEnabled(), s.logger)
	if err != nil {
		return fmt.Errorf("creating app handler: %w", err)
	}

	// === Pages and operations ===
	s.router.Get("/", appHandler.HandleIndex)
	s.router.Handle("/static/*", appHandler.HandleStatic())
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/user", authHandler.HandleUser)

		if authHandler.GoogleEnabled() {
			r.Get("/google", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	// === API (session required) ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/todos", todoHandler.HandleList)
		r.Post("/todos", todoHandler.HandleCreate)
		r.Put("/todos/{id}", todoHandler.HandleUpdate)
		r.Delete("/todos/{id}", todoHandler.HandleDelete)
	})

	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// PruneSessions runs one expiry sweep and returns how many sessions it removed.
func (s *Server) PruneSessions(ctx context.Context) (int64, error) {
	return s.sweeper.RunOnce(ctx)
}

// Ping checks that the database answers.
func (s *Server) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the session store and the database.
func (s *Server) Close() error {
	var errs []error
	if s.closeSessions != nil {
		if err := s.closeSessions(); err != nil {
			errs = append(errs, fmt.Errorf("closing session store: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting connections and let in-flight requests finish (30s)
//  2. Stop the session sweeper and wait for it
//  3. Close the session store and the database
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources failed", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	s.sweeper.Start(sweepCtx)
	defer func() {
		stopSweeper()
		s.sweeper.Wait()
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port)),
			slog.String("database", s.cfg.Database.Driver),
			slog.String("sessions", s.cfg.Session.Store),
			slog.Bool("google", s.google != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
