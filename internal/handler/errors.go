package handler

import (
	"errors"
	"fmt"

	"github.com/roach88/metadeploy/internal/ir"
)

// NoHandlerError is returned when no handler is registered for a type.
type NoHandlerError struct {
	Type ir.Type
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("no handler registered for type %q", e.Type)
}

// DuplicateHandlerError is returned when two registrations claim the same type.
type DuplicateHandlerError struct {
	Type ir.Type
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("type %q has more than one handler", e.Type)
}

// IsNoHandler reports whether err is, or wraps, a *NoHandlerError.
func IsNoHandler(err error) bool {
	var nh *NoHandlerError
	return errors.As(err, &nh)
}
