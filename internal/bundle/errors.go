package bundle

import (
	"fmt"
	"strings"
)

// UnresolvedDependencyError is returned when a bundle requires an ID that is
// not part of the set being installed.
type UnresolvedDependencyError struct {
	Bundle  string
	Missing string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("bundle %q requires %q, which is not available", e.Bundle, e.Missing)
}

// CyclicDependencyError is returned when the prerequisite graph loops.
// Path starts and ends with the same ID.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic bundle dependency: " + strings.Join(e.Path, " -> ")
}

// BundleInstallError wraps the failure of a single bundle's Install.
type BundleInstallError struct {
	Bundle string
	Err    error
}

func (e *BundleInstallError) Error() string {
	return fmt.Sprintf("failed to install bundle %q: %v", e.Bundle, e.Err)
}

func (e *BundleInstallError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking Install.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
