package handler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/metadeploy/internal/ir"
)

// Registry is a read-only lookup table from object type to handler.
type Registry struct {
	handlers map[ir.Type]Handler
}

// NewRegistry builds a registry from regs. It fails on an empty type, a nil
// handler, or a type claimed by more than one registration.
func NewRegistry(regs ...Registration) (*Registry, error) {
	handlers := make(map[ir.Type]Handler)
	for _, reg := range regs {
		if reg.Handler == nil {
			return nil, fmt.Errorf("registration for %v has a nil handler", reg.Types)
		}
		for _, t := range reg.Types {
			if t == "" {
				return nil, errors.New("registration with empty object type")
			}
			if _, exists := handlers[t]; exists {
				return nil, &DuplicateHandlerError{Type: t}
			}
			handlers[t] = reg.Handler
		}
	}
	return &Registry{handlers: handlers}, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
// Use only with static registration lists.
func MustNewRegistry(regs ...Registration) *Registry {
	r, err := NewRegistry(regs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the handler for t.
func (r *Registry) Resolve(t ir.Type) (Handler, error) {
	if h, ok := r.handlers[t]; ok {
		return h, nil
	}
	return nil, &NoHandlerError{Type: t}
}

// ResolveFor returns the handler for obj's type.
func (r *Registry) ResolveFor(obj ir.Object) (Handler, error) {
	return r.Resolve(obj.ObjectType())
}

// Require fails with the first missing type if any of types has no handler.
func (r *Registry) Require(types ...ir.Type) error {
	for _, t := range types {
		if _, err := r.Resolve(t); err != nil {
			return err
		}
	}
	return nil
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []ir.Type {
	out := make([]ir.Type, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
