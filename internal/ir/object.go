package ir

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type tags a deployable object and selects its handler.
type Type string

// Object is any persisted domain entity that can be deployed.
type Object interface {
	ObjectType() Type
}

// Named is implemented by objects that carry a human-facing name. The store
// indexes it so handlers can look up legacy rows by name.
type Named interface {
	DisplayName() string
}

// Retirable is implemented by objects that are soft-retired rather than deleted.
type Retirable interface {
	IsRetired() bool
}

// IdentifierLength is the required length of a uuid-style identifier.
const IdentifierLength = 36

// IsValidIdentifier reports whether s is usable as a uuid-style identifier:
// exactly 36 characters with no whitespace. The canonical dashed UUID form is
// not enforced because some dictionaries use other 36-character tokens.
func IsValidIdentifier(s string) bool {
	if utf8.RuneCountInString(s) != IdentifierLength {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsSpace)
}

// IsNil reports whether obj is nil or a typed nil pointer wrapped in the
// interface, which is what a failed fetch of a concrete type yields.
func IsNil(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
