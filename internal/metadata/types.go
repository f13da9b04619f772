package metadata

import (
	"time"

	"github.com/roach88/metadeploy/internal/ir"
)

// Object type tags.
const (
	TypePrivilege     ir.Type = "privilege"
	TypeRole          ir.Type = "role"
	TypeLocation      ir.Type = "location"
	TypeEncounterType ir.Type = "encounter_type"
	TypeEncounterRole ir.Type = "encounter_role"
	TypeVisitType     ir.Type = "visit_type"
	TypeForm          ir.Type = "form"
	TypeFormResource  ir.Type = "form_resource"
)

// AllTypes lists every type this package handles, in dependency order:
// a type only references types listed before it.
var AllTypes = []ir.Type{
	TypePrivilege,
	TypeRole,
	TypeLocation,
	TypeEncounterType,
	TypeEncounterRole,
	TypeVisitType,
	TypeForm,
	TypeFormResource,
}

// Retirement is the soft-delete state shared by uuid-keyed types.
type Retirement struct {
	Retired      bool       `json:"retired,omitempty"`
	RetiredAt    *time.Time `json:"retired_at,omitempty"`
	RetireReason string     `json:"retire_reason,omitempty"`
}

// IsRetired implements ir.Retirable.
func (r Retirement) IsRetired() bool { return r.Retired }

func (r *Retirement) retire(at time.Time, reason string) {
	at = at.UTC()
	r.Retired = true
	r.RetiredAt = &at
	r.RetireReason = reason
}

// Privilege is a named permission.
type Privilege struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (*Privilege) ObjectType() ir.Type { return TypePrivilege }
func (p *Privilege) DisplayName() string { return p.Name }

// Role groups privileges and may inherit other roles. References are by name.
type Role struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	InheritedRoles []string `json:"inherited_roles,omitempty"`
	Privileges     []string `json:"privileges,omitempty"`
}

func (*Role) ObjectType() ir.Type { return TypeRole }
func (r *Role) DisplayName() string { return r.Name }

// Location is a physical place.
type Location struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Retirement
}

func (*Location) ObjectType() ir.Type { return TypeLocation }
func (l *Location) DisplayName() string { return l.Name }

// EncounterType classifies encounters.
type EncounterType struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Retirement
}

func (*EncounterType) ObjectType() ir.Type { return TypeEncounterType }
func (e *EncounterType) DisplayName() string { return e.Name }

// EncounterRole is the part a provider plays in an encounter.
type EncounterRole struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Retirement
}

func (*EncounterRole) ObjectType() ir.Type { return TypeEncounterRole }
func (e *EncounterRole) DisplayName() string { return e.Name }

// VisitType classifies visits.
type VisitType struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Retirement
}

func (*VisitType) ObjectType() ir.Type { return TypeVisitType }
func (v *VisitType) DisplayName() string { return v.Name }

// Form is a data-entry form, optionally bound to an encounter type by uuid.
type Form struct {
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Version       string `json:"version,omitempty"`
	EncounterType string `json:"encounter_type,omitempty"`
	Published     bool   `json:"published,omitempty"`
	Retirement
}

func (*Form) ObjectType() ir.Type { return TypeForm }
func (f *Form) DisplayName() string { return f.Name }

// FormResource is a named value attached to a form, such as its rendering
// schema. Within a form the name is unique.
type FormResource struct {
	UUID           string `json:"uuid"`
	Form           string `json:"form"`
	Name           string `json:"name"`
	Datatype       string `json:"datatype,omitempty"`
	DatatypeConfig string `json:"datatype_config,omitempty"`
	Value          string `json:"value,omitempty"`
}

func (*FormResource) ObjectType() ir.Type { return TypeFormResource }
func (r *FormResource) DisplayName() string { return r.Name }
