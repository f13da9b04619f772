package distro

import (
	"fmt"
	"path"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/metadata"
	"github.com/roach88/metadeploy/internal/pkgimport"
)

// DecodeFunc turns the fields of an inline object into an object of type t.
type DecodeFunc func(t ir.Type, fields map[string]any) (ir.Object, error)

// PackageRef names a package file and the group it belongs to.
type PackageRef struct {
	File  string `json:"file"`
	Group string `json:"group"`
}

// SourceRef names an object file. Type is required for CSV files unless the
// file is named after its type.
type SourceRef struct {
	File string  `json:"file"`
	Type ir.Type `json:"type,omitempty"`
}

// Removal retires or purges one object.
type Removal struct {
	Type   ir.Type `json:"type"`
	ID     string  `json:"id"`
	Reason string  `json:"reason,omitempty"`
}

// BundleSpec is one compiled bundle declaration.
type BundleSpec struct {
	ID        string       `json:"id"`
	Requires  []string     `json:"requires,omitempty"`
	Packages  []PackageRef `json:"packages,omitempty"`
	Objects   []ir.Object  `json:"-"`
	Sources   []SourceRef  `json:"sources,omitempty"`
	Uninstall []Removal    `json:"uninstall,omitempty"`
	Pos       token.Pos    `json:"-"`
}

// CompileBundle parses the CUE value declared at bundle.<id>. A nil decode
// means metadata.Decode.
func CompileBundle(id string, v cue.Value, decode DecodeFunc) (*BundleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("bundle", err)
	}
	if decode == nil {
		decode = metadata.Decode
	}
	spec := &BundleSpec{ID: id, Pos: v.Pos()}

	var err error
	if spec.Requires, err = compileRequires(v); err != nil {
		return nil, err
	}
	if spec.Packages, err = compilePackages(v); err != nil {
		return nil, err
	}
	if spec.Objects, err = compileObjects(v, decode); err != nil {
		return nil, err
	}
	if spec.Sources, err = compileSources(v); err != nil {
		return nil, err
	}
	if spec.Uninstall, err = compileUninstall(v); err != nil {
		return nil, err
	}
	return spec, nil
}

// eachElem calls fn for every element of the optional list at field.
func eachElem(v cue.Value, field string, fn func(i int, elem cue.Value) error) error {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return formatCUEError(field, err)
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(i, iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// stringField reads an optional string field, returning "" when absent.
func stringField(v cue.Value, field, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(field, err)
	}
	return s, nil
}

func compileRequires(v cue.Value) ([]string, error) {
	var requires []string
	err := eachElem(v, "requires", func(_ int, elem cue.Value) error {
		s, err := elem.String()
		if err != nil {
			return formatCUEError("requires", err)
		}
		requires = append(requires, s)
		return nil
	})
	return requires, err
}

func compilePackages(v cue.Value) ([]PackageRef, error) {
	var pkgs []PackageRef
	err := eachElem(v, "packages", func(i int, elem cue.Value) error {
		file, err := stringField(elem, "packages", "file")
		if err != nil {
			return err
		}
		group, err := stringField(elem, "packages", "group")
		if err != nil {
			return err
		}
		if _, err := pkgimport.ParseFilename(file); err != nil {
			return &FieldError{Field: "packages", Message: fmt.Sprintf("[%d]: %v", i, err), Pos: elem.Pos()}
		}
		if group == "" {
			return &FieldError{Field: "packages", Message: fmt.Sprintf("[%d]: group is required", i), Pos: elem.Pos()}
		}
		pkgs = append(pkgs, PackageRef{File: file, Group: group})
		return nil
	})
	return pkgs, err
}

func compileObjects(v cue.Value, decode DecodeFunc) ([]ir.Object, error) {
	var objs []ir.Object
	err := eachElem(v, "objects", func(i int, elem cue.Value) error {
		var fields map[string]any
		if err := elem.Decode(&fields); err != nil {
			return formatCUEError("objects", err)
		}
		t, _ := fields["type"].(string)
		if t == "" {
			return &FieldError{Field: "objects", Message: fmt.Sprintf("[%d]: type is required", i), Pos: elem.Pos()}
		}
		delete(fields, "type")
		obj, err := decode(ir.Type(t), fields)
		if err != nil {
			return &FieldError{Field: "objects", Message: fmt.Sprintf("[%d]: %v", i, err), Pos: elem.Pos()}
		}
		objs = append(objs, obj)
		return nil
	})
	return objs, err
}

func compileSources(v cue.Value) ([]SourceRef, error) {
	var refs []SourceRef
	err := eachElem(v, "sources", func(i int, elem cue.Value) error {
		file, err := stringField(elem, "sources", "file")
		if err != nil {
			return err
		}
		t, err := stringField(elem, "sources", "type")
		if err != nil {
			return err
		}
		switch path.Ext(file) {
		case ".yaml", ".yml", ".csv":
		default:
			return &FieldError{Field: "sources", Message: fmt.Sprintf("[%d]: unsupported source file %q", i, file), Pos: elem.Pos()}
		}
		refs = append(refs, SourceRef{File: file, Type: ir.Type(t)})
		return nil
	})
	return refs, err
}

func compileUninstall(v cue.Value) ([]Removal, error) {
	var removals []Removal
	err := eachElem(v, "uninstall", func(i int, elem cue.Value) error {
		var r Removal
		if err := elem.Decode(&r); err != nil {
			return formatCUEError("uninstall", err)
		}
		if r.Type == "" || r.ID == "" {
			return &FieldError{Field: "uninstall", Message: fmt.Sprintf("[%d]: type and id are required", i), Pos: elem.Pos()}
		}
		removals = append(removals, r)
		return nil
	})
	return removals, err
}
