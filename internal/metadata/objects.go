package metadata

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/metadeploy/internal/ir"
)

// Objects is the unit-of-work view of stored objects handlers read and write
// through. *store.Session implements it.
type Objects interface {
	Get(ctx context.Context, t ir.Type, id string) (ir.Object, error)
	FindByName(ctx context.Context, t ir.Type, name string) (ir.Object, error)
	List(ctx context.Context, t ir.Type) ([]ir.Object, error)
	Put(id string, obj ir.Object) error
	Delete(t ir.Type, id string)
}

// InvalidIdentifierError is returned when saving an object whose uuid is not
// a valid 36-character identifier.
type InvalidIdentifierError struct {
	Type       ir.Type
	Identifier string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("%s: invalid identifier %q", e.Type, e.Identifier)
}

// MissingReferenceError is returned when saving an object that references
// another object which does not exist.
type MissingReferenceError struct {
	Type      ir.Type
	Object    string
	RefType   ir.Type
	Reference string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s %q references %s %q, which does not exist", e.Type, e.Object, e.RefType, e.Reference)
}

// IDSet returns ids sorted with duplicates and empty strings removed.
// Roles store their references in this form so equal sets fingerprint equally.
func IDSet(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
