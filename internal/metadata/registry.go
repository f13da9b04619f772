package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/metadeploy/internal/handler"
	"github.com/roach88/metadeploy/internal/ir"
)

// ErrUnknownType is wrapped by New and Decode for unregistered type tags.
var ErrUnknownType = errors.New("unknown object type")

// New returns a new, empty object of type t. It is the store's decode factory.
func New(t ir.Type) (ir.Object, error) {
	switch t {
	case TypePrivilege:
		return &Privilege{}, nil
	case TypeRole:
		return &Role{}, nil
	case TypeLocation:
		return &Location{}, nil
	case TypeEncounterType:
		return &EncounterType{}, nil
	case TypeEncounterRole:
		return &EncounterRole{}, nil
	case TypeVisitType:
		return &VisitType{}, nil
	case TypeForm:
		return &Form{}, nil
	case TypeFormResource:
		return &FormResource{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownType, t)
}

// Decode builds an object of type t from a field map, as produced by YAML,
// CSV or CUE sources. Unknown fields are rejected.
func Decode(t ir.Type, fields map[string]any) (ir.Object, error) {
	obj, err := New(t)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if r, ok := obj.(*Role); ok {
		r.InheritedRoles = IDSet(r.InheritedRoles...)
		r.Privileges = IDSet(r.Privileges...)
	}
	return obj, nil
}

// Registrations binds a handler to every type in AllTypes. Handlers read and
// write through objects and timestamp retirements with now.
func Registrations(objects Objects, now func() time.Time) []handler.Registration {
	if now == nil {
		now = time.Now
	}
	return []handler.Registration{
		{Types: []ir.Type{TypePrivilege}, Handler: &privilegeHandler{objects: objects}},
		{Types: []ir.Type{TypeRole}, Handler: &roleHandler{objects: objects}},
		{Types: []ir.Type{TypeLocation}, Handler: &retiringHandler{
			t: TypeLocation, objects: objects, now: now,
		}},
		{Types: []ir.Type{TypeEncounterType}, Handler: &retiringHandler{
			t: TypeEncounterType, objects: objects, now: now, matchByName: true,
		}},
		{Types: []ir.Type{TypeEncounterRole}, Handler: &retiringHandler{
			t: TypeEncounterRole, objects: objects, now: now,
		}},
		{Types: []ir.Type{TypeVisitType}, Handler: &retiringHandler{
			t: TypeVisitType, objects: objects, now: now, matchByName: true,
		}},
		{Types: []ir.Type{TypeForm}, Handler: &retiringHandler{
			t: TypeForm, objects: objects, now: now, matchByName: true, validate: validateForm(objects),
		}},
		{Types: []ir.Type{TypeFormResource}, Handler: &formResourceHandler{objects: objects}},
	}
}

// NewRegistry builds a registry from Registrations and checks that every type
// in AllTypes is covered.
func NewRegistry(objects Objects, now func() time.Time) (*handler.Registry, error) {
	reg, err := handler.NewRegistry(Registrations(objects, now)...)
	if err != nil {
		return nil, err
	}
	if err := reg.Require(AllTypes...); err != nil {
		return nil, err
	}
	return reg, nil
}
