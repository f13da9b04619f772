package handler

import (
	"context"

	"github.com/roach88/metadeploy/internal/ir"
)

// Handler is the per-type capability set the reconciler works through.
// Implementations hold no state across calls beyond their collaborators.
type Handler interface {
	// Identifier returns the object's stable identifier, or "" if it has none.
	Identifier(obj ir.Object) string

	// Fetch returns the stored object with the given identifier, or nil.
	Fetch(ctx context.Context, identifier string) (ir.Object, error)

	// FindAlternateMatch locates a stored object that should be treated as
	// the same logical entity as incoming even though it does not carry
	// incoming's identifier (e.g. a legacy row matched by name). Returns nil
	// when there is no such object.
	FindAlternateMatch(ctx context.Context, incoming ir.Object) (ir.Object, error)

	// Overwrite copies source's fields onto target. Identity fields of
	// target are never modified.
	Overwrite(source, target ir.Object) error

	// Save persists obj and returns the persisted instance.
	Save(ctx context.Context, obj ir.Object) (ir.Object, error)

	// Uninstall retires or removes obj. Which one is up to the handler.
	Uninstall(ctx context.Context, obj ir.Object, reason string) error
}

// Registration binds a handler to the object types it supports.
type Registration struct {
	Types   []ir.Type
	Handler Handler
}
