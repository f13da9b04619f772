package bundle

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// Session is the unit-of-work sync point the resolver flushes after each
// installed bundle, so later bundles read earlier writes.
type Session interface {
	Flush(ctx context.Context) error
}

// Observer is notified after each bundle installs successfully.
type Observer interface {
	BundleInstalled(id string, elapsed time.Duration)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithObserver reports installed bundles to o.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// Resolver installs bundles in dependency order.
type Resolver struct {
	session  Session
	logger   *slog.Logger
	observer Observer
}

// NewResolver creates a resolver that flushes session after each bundle.
// A nil session disables flushing.
func NewResolver(session Session, opts ...Option) *Resolver {
	r := &Resolver{
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report summarises an InstallBundles call. On failure Order holds the
// bundles installed before the error.
type Report struct {
	// Order lists the installed bundle IDs in execution order.
	Order    []string      `json:"order"`
	Duration time.Duration `json:"duration"`
}

// InstallBundles installs bundles and their prerequisites. The run stops at
// the first error. Bundles installed before the error stay installed.
func (r *Resolver) InstallBundles(ctx context.Context, bundles []Bundle) (Report, error) {
	start := time.Now()
	w := newWalker(bundles, func(b Bundle) error {
		return r.installOne(ctx, b)
	})
	for _, b := range bundles {
		if err := ctx.Err(); err != nil {
			return Report{Order: w.order, Duration: time.Since(start)}, err
		}
		if err := w.visit(b.ID()); err != nil {
			return Report{Order: w.order, Duration: time.Since(start)}, err
		}
	}
	report := Report{Order: w.order, Duration: time.Since(start)}
	r.logger.Info("bundles installed", "count", len(report.Order), "duration", report.Duration)
	return report, nil
}

func (r *Resolver) installOne(ctx context.Context, b Bundle) error {
	start := time.Now()
	r.logger.Debug("installing bundle", "bundle", b.ID())

	if err := runInstall(ctx, b); err != nil {
		r.logger.Error("bundle failed", "bundle", b.ID(), "error", err)
		return &BundleInstallError{Bundle: b.ID(), Err: err}
	}
	if r.session != nil {
		if err := r.session.Flush(ctx); err != nil {
			return &BundleInstallError{Bundle: b.ID(), Err: err}
		}
	}

	elapsed := time.Since(start)
	r.logger.Info("bundle installed", "bundle", b.ID(), "duration", elapsed)
	if r.observer != nil {
		r.observer.BundleInstalled(b.ID(), elapsed)
	}
	return nil
}

func runInstall(ctx context.Context, b Bundle) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return b.Install(ctx)
}

// Plan returns the order InstallBundles would install bundles in, without
// running anything. It fails the same way InstallBundles would on unresolved
// or cyclic prerequisites.
func Plan(bundles []Bundle) ([]string, error) {
	w := newWalker(bundles, nil)
	for _, b := range bundles {
		if err := w.visit(b.ID()); err != nil {
			return nil, err
		}
	}
	return w.order, nil
}

// walker is the run-scoped traversal state shared by InstallBundles and Plan.
type walker struct {
	index     map[string]Bundle
	installed map[string]bool
	visiting  map[string]bool
	path      []string
	order     []string
	exec      func(Bundle) error
}

func newWalker(bundles []Bundle, exec func(Bundle) error) *walker {
	index := make(map[string]Bundle, len(bundles))
	for _, b := range bundles {
		index[b.ID()] = b
	}
	return &walker{
		index:     index,
		installed: make(map[string]bool),
		visiting:  make(map[string]bool),
		exec:      exec,
	}
}

func (w *walker) visit(id string) error {
	if w.installed[id] {
		return nil
	}
	b := w.index[id]

	w.visiting[id] = true
	w.path = append(w.path, id)
	defer func() {
		delete(w.visiting, id)
		w.path = w.path[:len(w.path)-1]
	}()

	for _, dep := range b.Requires() {
		if w.installed[dep] {
			continue
		}
		if _, ok := w.index[dep]; !ok {
			return &UnresolvedDependencyError{Bundle: id, Missing: dep}
		}
		if w.visiting[dep] {
			start := slices.Index(w.path, dep)
			cycle := append(slices.Clone(w.path[start:]), dep)
			return &CyclicDependencyError{Path: cycle}
		}
		if err := w.visit(dep); err != nil {
			return err
		}
	}

	if w.exec != nil {
		if err := w.exec(b); err != nil {
			return err
		}
	}
	w.installed[id] = true
	w.order = append(w.order, id)
	return nil
}
