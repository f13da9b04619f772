package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/metadeploy/internal/ir"
)

// encodedObject is the row form of an object.
type encodedObject struct {
	body        string
	fingerprint string
	name        string
	retired     bool
}

// encodeObject converts obj to its stored row form. The body is canonical
// JSON so the fingerprint and the stored text agree byte for byte.
func encodeObject(obj ir.Object) (encodedObject, error) {
	body, err := ir.MarshalCanonical(obj)
	if err != nil {
		return encodedObject{}, fmt.Errorf("marshal %s: %w", obj.ObjectType(), err)
	}
	fp, err := ir.Fingerprint(obj)
	if err != nil {
		return encodedObject{}, err
	}
	enc := encodedObject{body: string(body), fingerprint: fp}
	if named, ok := obj.(ir.Named); ok {
		enc.name = named.DisplayName()
	}
	if r, ok := obj.(ir.Retirable); ok {
		enc.retired = r.IsRetired()
	}
	return enc, nil
}

// decodeObject builds a fresh object of type t from its stored body.
func (s *Store) decodeObject(t ir.Type, body string) (ir.Object, error) {
	if s.factory == nil {
		return nil, fmt.Errorf("decode %s: store opened without an object factory", t)
	}
	obj, err := s.factory(t)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if err := json.Unmarshal([]byte(body), obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return obj, nil
}
