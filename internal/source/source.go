// Package source reads deployable objects from YAML and CSV documents.
//
// Both sources implement reconcile.Source and decode each record through a
// field map, so any type metadata.Decode knows can be loaded from either.
package source

import (
	"fmt"
	"io/fs"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/metadata"
)

// DecodeFunc turns a field map into an object of type t.
type DecodeFunc func(t ir.Type, fields map[string]any) (ir.Object, error)

type options struct {
	fixed       ir.Type
	decode      DecodeFunc
	deriveUUIDs bool
}

// Option configures a source.
type Option func(*options)

// WithType makes every record of the source type t. YAML documents may still
// carry a type field, but it must agree.
func WithType(t ir.Type) Option {
	return func(o *options) {
		o.fixed = t
	}
}

// WithDecoder replaces metadata.Decode.
func WithDecoder(fn DecodeFunc) Option {
	return func(o *options) {
		o.decode = fn
	}
}

// WithDerivedUUIDs fills a missing uuid field from the record's type and name
// via metadata.NameUUID, for uuid-keyed types.
func WithDerivedUUIDs() Option {
	return func(o *options) {
		o.deriveUUIDs = true
	}
}

func buildOptions(opts []Option) options {
	o := options{decode: metadata.Decode}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TypeField is the discriminator key in YAML documents.
const TypeField = "type"

// decodeRecord resolves the record type and decodes fields. fields is
// modified.
func (o options) decodeRecord(fields map[string]any) (ir.Object, error) {
	t := o.fixed
	if raw, ok := fields[TypeField]; ok {
		s, isString := raw.(string)
		if !isString || s == "" {
			return nil, fmt.Errorf("%s must be a non-empty string", TypeField)
		}
		if t != "" && ir.Type(s) != t {
			return nil, fmt.Errorf("record type %q does not match source type %q", s, t)
		}
		t = ir.Type(s)
		delete(fields, TypeField)
	}
	if t == "" {
		return nil, fmt.Errorf("record has no %s", TypeField)
	}

	if o.deriveUUIDs && uuidKeyed(t) {
		if _, has := fields["uuid"]; !has {
			if name, ok := fields["name"].(string); ok && name != "" {
				// Resource names are only unique within their form.
				if form, ok := fields["form"].(string); ok && t == metadata.TypeFormResource {
					name = form + "/" + name
				}
				fields["uuid"] = metadata.NameUUID(t, name)
			}
		}
	}
	return o.decode(t, fields)
}

func uuidKeyed(t ir.Type) bool {
	return t != metadata.TypePrivilege && t != metadata.TypeRole
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
