// Package chore runs one-time maintenance actions and remembers that they ran.
//
// Completion is recorded as the setting "<id>.done" = "true". The runner only
// writes the marker; deciding whether to run is the caller's job (RunPending
// does both for the common case).
package chore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// MarkerSuffix is appended to a chore ID to form its completion setting key.
const MarkerSuffix = ".done"

// MarkerValue is the value stored under a completed chore's marker.
const MarkerValue = "true"

// MarkerKey returns the settings key recording that chore id has run.
func MarkerKey(id string) string {
	return id + MarkerSuffix
}

// Chore is a one-shot maintenance action.
type Chore interface {
	ID() string
	// Perform does the work, writing human-readable progress to out.
	Perform(ctx context.Context, out io.Writer) error
}

// Func adapts a function to the Chore interface.
type Func struct {
	Name string
	Run  func(ctx context.Context, out io.Writer) error
}

func (f Func) ID() string { return f.Name }

func (f Func) Perform(ctx context.Context, out io.Writer) error {
	return f.Run(ctx, out)
}

// Session is the unit-of-work sync point flushed and cleared after a chore.
type Session interface {
	Flush(ctx context.Context) error
	Clear()
}

// Settings is the key/value store holding completion markers.
type Settings interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithOutput sets the writer chores report progress to. The default discards.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// Runner performs chores and records their completion.
type Runner struct {
	session  Session
	settings Settings
	out      io.Writer
	logger   *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(session Session, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		session:  session,
		settings: settings,
		out:      io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PerformChore runs c once, flushes and clears the session, then sets c's
// completion marker. An error from c is returned unchanged and leaves the
// marker unset.
func (r *Runner) PerformChore(ctx context.Context, c Chore) error {
	start := time.Now()
	r.logger.Info("performing chore", "chore", c.ID())

	if err := c.Perform(ctx, r.out); err != nil {
		r.session.Clear()
		return err
	}
	if err := r.session.Flush(ctx); err != nil {
		return fmt.Errorf("chore %s: flush: %w", c.ID(), err)
	}
	r.session.Clear()

	if err := r.settings.SetSetting(ctx, MarkerKey(c.ID()), MarkerValue); err != nil {
		return fmt.Errorf("chore %s: mark done: %w", c.ID(), err)
	}
	r.logger.Info("chore done", "chore", c.ID(), "duration", time.Since(start))
	return nil
}

// Done reports whether chore id has completion recorded.
func (r *Runner) Done(ctx context.Context, id string) (bool, error) {
	v, ok, err := r.settings.Setting(ctx, MarkerKey(id))
	if err != nil {
		return false, err
	}
	return ok && v == MarkerValue, nil
}

// RunPending performs every chore in chores that has not completed yet and
// returns the IDs it ran. It stops at the first failure.
func (r *Runner) RunPending(ctx context.Context, chores []Chore) ([]string, error) {
	var ran []string
	for _, c := range chores {
		done, err := r.Done(ctx, c.ID())
		if err != nil {
			return ran, err
		}
		if done {
			r.logger.Debug("chore already done", "chore", c.ID())
			continue
		}
		if err := r.PerformChore(ctx, c); err != nil {
			return ran, err
		}
		ran = append(ran, c.ID())
	}
	return ran, nil
}
