package content

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Manager is a unit of refreshable content.
type Manager interface {
	Name() string
	// Priority orders managers; lower runs first.
	Priority() int
	Refresh(ctx context.Context) error
}

// Session is the unit-of-work sync point between managers.
type Session interface {
	Flush(ctx context.Context) error
	Clear()
}

// Observer is told how long each manager took and whether it failed.
type Observer interface {
	ManagerRefreshed(name string, elapsed time.Duration, err error)
}

// RefreshError names the manager whose refresh failed.
type RefreshError struct {
	Manager string
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.Manager, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Result describes a completed RefreshAll.
type Result struct {
	// Refreshed lists manager names in the order they ran.
	Refreshed []string      `json:"refreshed"`
	Duration  time.Duration `json:"duration"`
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) {
		r.logger = l
	}
}

// WithObserver reports per-manager timings to o.
func WithObserver(o Observer) Option {
	return func(r *Refresher) {
		r.observer = o
	}
}

// Refresher runs content managers.
//
// Thread-safety: RefreshAll is serialised by an internal mutex; a second
// caller blocks until the first refresh finishes.
type Refresher struct {
	mu       sync.Mutex
	session  Session
	logger   *slog.Logger
	observer Observer
}

// NewRefresher creates a Refresher over session.
func NewRefresher(session Session, opts ...Option) *Refresher {
	r := &Refresher{
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefreshManager refreshes m, then flushes and clears the session. On failure
// the session is cleared without flushing.
func (r *Refresher) RefreshManager(ctx context.Context, m Manager) error {
	start := time.Now()
	r.logger.Info("refreshing", "manager", m.Name(), "priority", m.Priority())

	err := m.Refresh(ctx)
	if err == nil {
		err = r.session.Flush(ctx)
	}
	r.session.Clear()

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.ManagerRefreshed(m.Name(), elapsed, err)
	}
	if err != nil {
		r.logger.Error("refresh failed", "manager", m.Name(), "duration", elapsed, "error", err)
		return &RefreshError{Manager: m.Name(), Err: err}
	}
	r.logger.Info("refreshed", "manager", m.Name(), "duration", elapsed)
	return nil
}

// RefreshAll refreshes managers in ascending priority order; ties keep their
// given order. It stops at the first failure and returns the managers that
// completed before it.
func (r *Refresher) RefreshAll(ctx context.Context, managers []Manager) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	ordered := Sort(managers)
	res := Result{Refreshed: make([]string, 0, len(ordered))}

	for _, m := range ordered {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		if err := r.RefreshManager(ctx, m); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		res.Refreshed = append(res.Refreshed, m.Name())
	}

	res.Duration = time.Since(start)
	r.logger.Info("refresh complete", "managers", len(res.Refreshed), "duration", res.Duration)
	return res, nil
}

// Sort returns managers stably sorted by ascending priority.
func Sort(managers []Manager) []Manager {
	out := slices.Clone(managers)
	slices.SortStableFunc(out, func(a, b Manager) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return out
}
