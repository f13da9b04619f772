package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/metadeploy/internal/handler"
	"github.com/roach88/metadeploy/internal/ir"
)

// Outcome describes what InstallObject did with an incoming object.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Observer is notified after every successful install.
type Observer interface {
	ObjectInstalled(t ir.Type, outcome Outcome)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithObserver reports install outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		r.observer = o
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// Reconciler is stateless apart from its collaborators and may be shared by
// every bundle in a run.
type Reconciler struct {
	registry *handler.Registry
	observer Observer
	logger   *slog.Logger
}

// New creates a Reconciler that resolves handlers through registry.
func New(registry *handler.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the handler registry.
func (r *Reconciler) Registry() *handler.Registry {
	return r.registry
}

// InstallObject creates incoming or updates the stored object it corresponds
// to, and returns the persisted instance.
func (r *Reconciler) InstallObject(ctx context.Context, incoming ir.Object) (ir.Object, error) {
	if ir.IsNil(incoming) {
		return nil, errors.New("install: nil object")
	}
	h, err := r.registry.ResolveFor(incoming)
	if err != nil {
		return nil, err
	}

	t := incoming.ObjectType()
	id := h.Identifier(incoming)
	if id == "" {
		return nil, &MissingIdentifierError{Type: t}
	}

	existing, err := h.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %q: %w", t, id, err)
	}
	if ir.IsNil(existing) {
		existing, err = h.FindAlternateMatch(ctx, incoming)
		if err != nil {
			return nil, fmt.Errorf("match %s %q: %w", t, id, err)
		}
	}

	if !ir.IsNil(existing) {
		if err := h.Overwrite(incoming, existing); err != nil {
			return nil, fmt.Errorf("overwrite %s %q: %w", t, id, err)
		}
		saved, err := h.Save(ctx, existing)
		if err != nil {
			return nil, fmt.Errorf("save %s %q: %w", t, id, err)
		}
		r.logger.Debug("object updated", "type", t, "id", id)
		r.observe(t, OutcomeUpdated)
		return saved, nil
	}

	saved, err := h.Save(ctx, incoming)
	if err != nil {
		return nil, fmt.Errorf("save %s %q: %w", t, id, err)
	}
	r.logger.Debug("object created", "type", t, "id", id)
	r.observe(t, OutcomeCreated)
	return saved, nil
}

// InstallFromSource installs every object src yields, in order. Any failure
// aborts the drain and is returned as a *SourceError; objects installed before
// the failure stay installed but are not returned.
func (r *Reconciler) InstallFromSource(ctx context.Context, src Source) ([]ir.Object, error) {
	var installed []ir.Object
	for {
		obj, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SourceError{Origin: src.Origin(), Err: err}
		}
		saved, err := r.InstallObject(ctx, obj)
		if err != nil {
			return nil, &SourceError{Origin: src.Origin(), Err: err}
		}
		installed = append(installed, saved)
	}
	r.logger.Debug("source installed", "origin", src.Origin(), "count", len(installed))
	return installed, nil
}

// UninstallObject retires or removes outgoing. A nil object is ignored.
func (r *Reconciler) UninstallObject(ctx context.Context, outgoing ir.Object, reason string) error {
	if ir.IsNil(outgoing) {
		return nil
	}
	h, err := r.registry.ResolveFor(outgoing)
	if err != nil {
		return err
	}
	if err := h.Uninstall(ctx, outgoing, reason); err != nil {
		return fmt.Errorf("uninstall %s %q: %w", outgoing.ObjectType(), h.Identifier(outgoing), err)
	}
	return nil
}

// FetchObject returns the stored object of type t with identifier id, or nil.
func (r *Reconciler) FetchObject(ctx context.Context, t ir.Type, id string) (ir.Object, error) {
	h, err := r.registry.Resolve(t)
	if err != nil {
		return nil, err
	}
	return h.Fetch(ctx, id)
}

// SaveObject persists obj without any matching.
func (r *Reconciler) SaveObject(ctx context.Context, obj ir.Object) (ir.Object, error) {
	h, err := r.registry.ResolveFor(obj)
	if err != nil {
		return nil, err
	}
	return h.Save(ctx, obj)
}

// OverwriteObject copies src onto dst and saves dst.
func (r *Reconciler) OverwriteObject(ctx context.Context, src, dst ir.Object) (ir.Object, error) {
	h, err := r.registry.ResolveFor(dst)
	if err != nil {
		return nil, err
	}
	if err := h.Overwrite(src, dst); err != nil {
		return nil, err
	}
	return h.Save(ctx, dst)
}

// Identifier returns obj's identifier as its handler defines it.
func (r *Reconciler) Identifier(obj ir.Object) (string, error) {
	h, err := r.registry.ResolveFor(obj)
	if err != nil {
		return "", err
	}
	return h.Identifier(obj), nil
}

// Possible returns the stored object or nil when it does not exist.
func (r *Reconciler) Possible(ctx context.Context, t ir.Type, id string) (ir.Object, error) {
	obj, err := r.FetchObject(ctx, t, id)
	if err != nil || ir.IsNil(obj) {
		return nil, err
	}
	return obj, nil
}

// Existing is like Possible but fails with *MissingObjectError when the
// object does not exist.
func (r *Reconciler) Existing(ctx context.Context, t ir.Type, id string) (ir.Object, error) {
	obj, err := r.Possible(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &MissingObjectError{Type: t, Identifier: id}
	}
	return obj, nil
}

func (r *Reconciler) observe(t ir.Type, outcome Outcome) {
	if r.observer != nil {
		r.observer.ObjectInstalled(t, outcome)
	}
}

// Install is InstallObject with the result asserted back to T.
func Install[T ir.Object](ctx context.Context, r *Reconciler, incoming T) (T, error) {
	var zero T
	saved, err := r.InstallObject(ctx, incoming)
	if err != nil {
		return zero, err
	}
	typed, ok := saved.(T)
	if !ok {
		return zero, fmt.Errorf("install %s: handler returned %T", incoming.ObjectType(), saved)
	}
	return typed, nil
}

// Fetch is FetchObject with the result asserted to T. A missing object yields
// the zero T and ok == false.
func Fetch[T ir.Object](ctx context.Context, r *Reconciler, t ir.Type, id string) (obj T, ok bool, err error) {
	found, err := r.Possible(ctx, t, id)
	if err != nil || found == nil {
		return obj, false, err
	}
	typed, isT := found.(T)
	if !isT {
		return obj, false, fmt.Errorf("fetch %s %q: stored object is %T", t, id, found)
	}
	return typed, true, nil
}
