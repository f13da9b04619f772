package metadata

import (
	"github.com/google/uuid"

	"github.com/roach88/metadeploy/internal/ir"
)

// namespace seeds NameUUID. Changing it changes every derived uuid.
var namespace = uuid.MustParse("5b7e4c1a-3f0d-4f4e-9a43-9d1f2b6c8e70")

// NameUUID derives a stable uuid for an object of type t named name, for
// sources that declare objects without one.
func NameUUID(t ir.Type, name string) string {
	return uuid.NewSHA1(namespace, []byte(string(t)+"/"+name)).String()
}

func NewPrivilege(name, description string) *Privilege {
	return &Privilege{Name: name, Description: description}
}

func NewRole(name, description string, inherited, privileges []string) *Role {
	return &Role{
		Name:           name,
		Description:    description,
		InheritedRoles: IDSet(inherited...),
		Privileges:     IDSet(privileges...),
	}
}

func NewLocation(name, description, id string) *Location {
	return &Location{UUID: id, Name: name, Description: description}
}

func NewEncounterType(name, description, id string) *EncounterType {
	return &EncounterType{UUID: id, Name: name, Description: description}
}

func NewEncounterRole(name, description, id string) *EncounterRole {
	return &EncounterRole{UUID: id, Name: name, Description: description}
}

func NewVisitType(name, description, id string) *VisitType {
	return &VisitType{UUID: id, Name: name, Description: description}
}

func NewForm(name, description, encounterType, version, id string) *Form {
	return &Form{
		UUID:          id,
		Name:          name,
		Description:   description,
		EncounterType: encounterType,
		Version:       version,
	}
}

func NewFormResource(form, name, datatype, datatypeConfig, value, id string) *FormResource {
	return &FormResource{
		UUID:           id,
		Form:           form,
		Name:           name,
		Datatype:       datatype,
		DatatypeConfig: datatypeConfig,
		Value:          value,
	}
}
