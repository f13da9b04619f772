package pkgimport

import "fmt"

// InvalidFilenameError is returned for a filename that does not match
// "<name>-<digits>.zip".
type InvalidFilenameError struct {
	Filename string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("invalid package filename %q: want <name>-<version>.zip", e.Filename)
}

// ResourceNotFoundError is returned when the loader cannot locate the file.
type ResourceNotFoundError struct {
	Filename string
	Err      error
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("package %s not found: %v", e.Filename, e.Err)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// ImportFailureError wraps any failure while reading or importing a package.
type ImportFailureError struct {
	Filename string
	Err      error
}

func (e *ImportFailureError) Error() string {
	return fmt.Sprintf("failed to import package %s: %v", e.Filename, e.Err)
}

func (e *ImportFailureError) Unwrap() error { return e.Err }
