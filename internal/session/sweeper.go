package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the Sweeper prunes expired sessions.
const DefaultSweepInterval = time.Hour

// SweepObserver is notified of every successful sweep. metrics.Collector
// implements it.
type SweepObserver interface {
	ObserveSessionsSwept(n int64)
}

// Sweeper periodically deletes expired sessions so stores that are never
// asked about a stale token do not grow without bound.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
	observer SweepObserver

	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewSweeper creates a Sweeper. observer may be nil.
func NewSweeper(manager *Manager, interval time.Duration, logger *slog.Logger, observer SweepObserver) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		logger:   logger,
		observer: observer,
	}
}

// Start runs the sweep loop in a goroutine until ctx is cancelled. Calling
// Start more than once has no effect.
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
	})
}

// Wait blocks until the loop started by Start has returned.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.manager.Prune(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return 0, err
	}
	if s.observer != nil {
		s.observer.ObserveSessionsSwept(n)
	}
	s.logger.Info("session sweep completed",
		slog.Int64("deleted", n),
		slog.Duration("duration", time.Since(start)),
	)
	return n, nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are logged by RunOnce; the next tick tries again.
			_, _ = s.RunOnce(ctx)
		}
	}
}
