package reconcile

import (
	"fmt"

	"github.com/roach88/metadeploy/internal/ir"
)

// MissingIdentifierError is returned when a handler yields no identifier for
// an incoming object.
type MissingIdentifierError struct {
	Type ir.Type
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("%s has no identifier", e.Type)
}

// SourceError wraps any failure while installing from a Source.
type SourceError struct {
	Origin string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to install from %s: %v", e.Origin, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// MissingObjectError is returned by Existing when the object is absent.
type MissingObjectError struct {
	Type       ir.Type
	Identifier string
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Type, e.Identifier)
}
