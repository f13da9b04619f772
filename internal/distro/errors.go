package distro

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes reported in LoadError.Code.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeRequires  = "E201" // Malformed requires list
	ErrCodePackage   = "E202" // Malformed package entry
	ErrCodeObject    = "E203" // Object that does not decode
	ErrCodeSource    = "E204" // Malformed source entry
	ErrCodeUninstall = "E205" // Malformed uninstall entry
	ErrCodeNoBundles = "E206" // Distribution declares no bundles
)

// LoadError is a distribution loading failure with its CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError is a problem with one field of a bundle declaration.
type FieldError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *FieldError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// fieldCode maps a FieldError field to an error code.
func fieldCode(field string) string {
	switch field {
	case "requires":
		return ErrCodeRequires
	case "packages":
		return ErrCodePackage
	case "objects":
		return ErrCodeObject
	case "sources":
		return ErrCodeSource
	case "uninstall":
		return ErrCodeUninstall
	default:
		return ErrCodeGeneric
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(field string, err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &FieldError{Field: field, Message: err.Error()}
	}
	first := errs[0]
	var pos token.Pos
	if positions := errors.Positions(first); len(positions) > 0 {
		pos = positions[0]
	}
	return &FieldError{Field: field, Message: first.Error(), Pos: pos}
}
