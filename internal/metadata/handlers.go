package metadata

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/metadeploy/internal/ir"
)

// privilegeHandler and roleHandler key by name and purge on uninstall.

type privilegeHandler struct {
	objects Objects
}

func (h *privilegeHandler) Identifier(obj ir.Object) string {
	if p, ok := obj.(*Privilege); ok {
		return p.Name
	}
	return ""
}

func (h *privilegeHandler) Fetch(ctx context.Context, id string) (ir.Object, error) {
	return h.objects.Get(ctx, TypePrivilege, id)
}

func (h *privilegeHandler) FindAlternateMatch(context.Context, ir.Object) (ir.Object, error) {
	return nil, nil
}

func (h *privilegeHandler) Overwrite(source, target ir.Object) error {
	src, dst, err := pair[*Privilege](source, target)
	if err != nil {
		return err
	}
	dst.Description = src.Description
	return nil
}

func (h *privilegeHandler) Save(_ context.Context, obj ir.Object) (ir.Object, error) {
	p, ok := obj.(*Privilege)
	if !ok {
		return nil, unexpected(TypePrivilege, obj)
	}
	if err := h.objects.Put(p.Name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Uninstall purges the privilege and removes it from every role granting it.
func (h *privilegeHandler) Uninstall(ctx context.Context, obj ir.Object, _ string) error {
	p, ok := obj.(*Privilege)
	if !ok {
		return unexpected(TypePrivilege, obj)
	}
	h.objects.Delete(TypePrivilege, p.Name)
	return dropRoleReferences(ctx, h.objects, TypePrivilege, p.Name)
}

type roleHandler struct {
	objects Objects
}

func (h *roleHandler) Identifier(obj ir.Object) string {
	if r, ok := obj.(*Role); ok {
		return r.Name
	}
	return ""
}

func (h *roleHandler) Fetch(ctx context.Context, id string) (ir.Object, error) {
	return h.objects.Get(ctx, TypeRole, id)
}

func (h *roleHandler) FindAlternateMatch(context.Context, ir.Object) (ir.Object, error) {
	return nil, nil
}

func (h *roleHandler) Overwrite(source, target ir.Object) error {
	src, dst, err := pair[*Role](source, target)
	if err != nil {
		return err
	}
	dst.Description = src.Description
	dst.InheritedRoles = IDSet(src.InheritedRoles...)
	dst.Privileges = IDSet(src.Privileges...)
	return nil
}

// Save rejects references to roles or privileges that do not exist.
func (h *roleHandler) Save(ctx context.Context, obj ir.Object) (ir.Object, error) {
	r, ok := obj.(*Role)
	if !ok {
		return nil, unexpected(TypeRole, obj)
	}
	r.InheritedRoles = IDSet(r.InheritedRoles...)
	r.Privileges = IDSet(r.Privileges...)

	for _, name := range r.InheritedRoles {
		if err := requireRef(ctx, h.objects, TypeRole, r.Name, TypeRole, name); err != nil {
			return nil, err
		}
	}
	for _, name := range r.Privileges {
		if err := requireRef(ctx, h.objects, TypeRole, r.Name, TypePrivilege, name); err != nil {
			return nil, err
		}
	}
	if err := h.objects.Put(r.Name, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Uninstall purges the role and removes it from every role inheriting it.
func (h *roleHandler) Uninstall(ctx context.Context, obj ir.Object, _ string) error {
	r, ok := obj.(*Role)
	if !ok {
		return unexpected(TypeRole, obj)
	}
	h.objects.Delete(TypeRole, r.Name)
	return dropRoleReferences(ctx, h.objects, TypeRole, r.Name)
}

// dropRoleReferences removes name from the inherited roles (t is TypeRole)
// or privileges (t is TypePrivilege) of every stored role.
func dropRoleReferences(ctx context.Context, objects Objects, t ir.Type, name string) error {
	roles, err := objects.List(ctx, TypeRole)
	if err != nil {
		return fmt.Errorf("purge %s %q: %w", t, name, err)
	}
	for _, obj := range roles {
		role := obj.(*Role)
		refs := &role.Privileges
		if t == TypeRole {
			refs = &role.InheritedRoles
		}
		if !slices.Contains(*refs, name) {
			continue
		}
		*refs = IDSet(slices.DeleteFunc(slices.Clone(*refs), func(s string) bool { return s == name })...)
		if err := objects.Put(role.Name, role); err != nil {
			return err
		}
	}
	return nil
}

// retirable is implemented by the uuid-keyed types.
type retirable interface {
	ir.Object
	ir.Named
	identifier() string
	retirement() *Retirement
	// copyFrom copies every non-identity field of src.
	copyFrom(src ir.Object) error
}

func (l *Location) identifier() string { return l.UUID }
func (l *Location) retirement() *Retirement { return &l.Retirement }
func (e *EncounterType) identifier() string { return e.UUID }
func (e *EncounterType) retirement() *Retirement { return &e.Retirement }
func (e *EncounterRole) identifier() string { return e.UUID }
func (e *EncounterRole) retirement() *Retirement { return &e.Retirement }
func (v *VisitType) identifier() string { return v.UUID }
func (v *VisitType) retirement() *Retirement { return &v.Retirement }
func (f *Form) identifier() string { return f.UUID }
func (f *Form) retirement() *Retirement { return &f.Retirement }

func (l *Location) copyFrom(src ir.Object) error {
	s, ok := src.(*Location)
	if !ok {
		return unexpected(TypeLocation, src)
	}
	l.Name, l.Description, l.Retirement = s.Name, s.Description, s.Retirement
	return nil
}

func (e *EncounterType) copyFrom(src ir.Object) error {
	s, ok := src.(*EncounterType)
	if !ok {
		return unexpected(TypeEncounterType, src)
	}
	e.Name, e.Description, e.Retirement = s.Name, s.Description, s.Retirement
	return nil
}

func (e *EncounterRole) copyFrom(src ir.Object) error {
	s, ok := src.(*EncounterRole)
	if !ok {
		return unexpected(TypeEncounterRole, src)
	}
	e.Name, e.Description, e.Retirement = s.Name, s.Description, s.Retirement
	return nil
}

func (v *VisitType) copyFrom(src ir.Object) error {
	s, ok := src.(*VisitType)
	if !ok {
		return unexpected(TypeVisitType, src)
	}
	v.Name, v.Description, v.Retirement = s.Name, s.Description, s.Retirement
	return nil
}

func (f *Form) copyFrom(src ir.Object) error {
	s, ok := src.(*Form)
	if !ok {
		return unexpected(TypeForm, src)
	}
	f.Name, f.Description, f.Version = s.Name, s.Description, s.Version
	f.EncounterType, f.Published, f.Retirement = s.EncounterType, s.Published, s.Retirement
	return nil
}

// retiringHandler serves every uuid-keyed type.
type retiringHandler struct {
	t           ir.Type
	objects     Objects
	now         func() time.Time
	matchByName bool
	// validate checks references before a save.
	validate func(ctx context.Context, obj retirable) error
}

func (h *retiringHandler) Identifier(obj ir.Object) string {
	if r, ok := obj.(retirable); ok && obj.ObjectType() == h.t {
		return r.identifier()
	}
	return ""
}

func (h *retiringHandler) Fetch(ctx context.Context, id string) (ir.Object, error) {
	return h.objects.Get(ctx, h.t, id)
}

// FindAlternateMatch finds a stored object with the same name but a
// different uuid, as left behind by hand-made or older installs.
func (h *retiringHandler) FindAlternateMatch(ctx context.Context, incoming ir.Object) (ir.Object, error) {
	if !h.matchByName {
		return nil, nil
	}
	r, ok := incoming.(retirable)
	if !ok || r.DisplayName() == "" {
		return nil, nil
	}
	return h.objects.FindByName(ctx, h.t, r.DisplayName())
}

func (h *retiringHandler) Overwrite(source, target ir.Object) error {
	dst, ok := target.(retirable)
	if !ok || target.ObjectType() != h.t {
		return unexpected(h.t, target)
	}
	return dst.copyFrom(source)
}

func (h *retiringHandler) Save(ctx context.Context, obj ir.Object) (ir.Object, error) {
	r, ok := obj.(retirable)
	if !ok || obj.ObjectType() != h.t {
		return nil, unexpected(h.t, obj)
	}
	if !ir.IsValidIdentifier(r.identifier()) {
		return nil, &InvalidIdentifierError{Type: h.t, Identifier: r.identifier()}
	}
	if h.validate != nil {
		if err := h.validate(ctx, r); err != nil {
			return nil, err
		}
	}
	if err := h.objects.Put(r.identifier(), r); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *retiringHandler) Uninstall(_ context.Context, obj ir.Object, reason string) error {
	r, ok := obj.(retirable)
	if !ok || obj.ObjectType() != h.t {
		return unexpected(h.t, obj)
	}
	r.retirement().retire(h.now(), reason)
	return h.objects.Put(r.identifier(), r)
}

func validateForm(objects Objects) func(context.Context, retirable) error {
	return func(ctx context.Context, obj retirable) error {
		f := obj.(*Form)
		if f.EncounterType == "" {
			return nil
		}
		return requireRef(ctx, objects, TypeForm, f.UUID, TypeEncounterType, f.EncounterType)
	}
}

// formResourceHandler keys resources by uuid, matches a legacy row by form
// and name, and purges on uninstall.
type formResourceHandler struct {
	objects Objects
}

func (h *formResourceHandler) Identifier(obj ir.Object) string {
	if r, ok := obj.(*FormResource); ok {
		return r.UUID
	}
	return ""
}

func (h *formResourceHandler) Fetch(ctx context.Context, id string) (ir.Object, error) {
	return h.objects.Get(ctx, TypeFormResource, id)
}

func (h *formResourceHandler) FindAlternateMatch(ctx context.Context, incoming ir.Object) (ir.Object, error) {
	r, ok := incoming.(*FormResource)
	if !ok || r.Form == "" || r.Name == "" {
		return nil, nil
	}
	all, err := h.objects.List(ctx, TypeFormResource)
	if err != nil {
		return nil, err
	}
	for _, obj := range all {
		if other := obj.(*FormResource); other.Form == r.Form && other.Name == r.Name {
			return other, nil
		}
	}
	return nil, nil
}

func (h *formResourceHandler) Overwrite(source, target ir.Object) error {
	src, dst, err := pair[*FormResource](source, target)
	if err != nil {
		return err
	}
	dst.Form, dst.Name = src.Form, src.Name
	dst.Datatype, dst.DatatypeConfig, dst.Value = src.Datatype, src.DatatypeConfig, src.Value
	return nil
}

func (h *formResourceHandler) Save(ctx context.Context, obj ir.Object) (ir.Object, error) {
	r, ok := obj.(*FormResource)
	if !ok {
		return nil, unexpected(TypeFormResource, obj)
	}
	if !ir.IsValidIdentifier(r.UUID) {
		return nil, &InvalidIdentifierError{Type: TypeFormResource, Identifier: r.UUID}
	}
	if err := requireRef(ctx, h.objects, TypeFormResource, r.UUID, TypeForm, r.Form); err != nil {
		return nil, err
	}
	if err := h.objects.Put(r.UUID, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *formResourceHandler) Uninstall(_ context.Context, obj ir.Object, _ string) error {
	r, ok := obj.(*FormResource)
	if !ok {
		return unexpected(TypeFormResource, obj)
	}
	h.objects.Delete(TypeFormResource, r.UUID)
	return nil
}

func requireRef(ctx context.Context, objects Objects, t ir.Type, owner string, refType ir.Type, ref string) error {
	found, err := objects.Get(ctx, refType, ref)
	if err != nil {
		return err
	}
	if found == nil {
		return &MissingReferenceError{Type: t, Object: owner, RefType: refType, Reference: ref}
	}
	return nil
}

func pair[T ir.Object](source, target ir.Object) (T, T, error) {
	var zero T
	src, ok := source.(T)
	if !ok {
		return zero, zero, unexpected(target.ObjectType(), source)
	}
	dst, ok := target.(T)
	if !ok {
		return zero, zero, unexpected(source.ObjectType(), target)
	}
	return src, dst, nil
}

func unexpected(want ir.Type, got ir.Object) error {
	return fmt.Errorf("%s handler cannot handle %T", want, got)
}
