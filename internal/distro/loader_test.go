package distro

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/metadata"
)

func writeDistro(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func firstLoadError(t *testing.T, errs []error) *LoadError {
	t.Helper()
	require.NotEmpty(t, errs)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr), "got %T: %v", errs[0], errs[0])
	return loadErr
}

func TestLoad_Basic(t *testing.T) {
	d, errs := Load("testdata/basic", LoadModeCollectAll, nil)
	require.Empty(t, errs)

	assert.Equal(t, 2, d.FileCount)
	ids := make([]string, 0, len(d.Specs))
	for _, s := range d.Specs {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"forms", "locations", "privileges", "roles"}, ids)

	privileges, ok := d.Spec("privileges")
	require.True(t, ok)
	assert.Equal(t, []ir.Object{
		metadata.NewPrivilege("View Forms", ""),
		metadata.NewPrivilege("Edit Forms", ""),
	}, privileges.Objects)
	assert.True(t, privileges.Pos.IsValid())

	roles, _ := d.Spec("roles")
	assert.Equal(t, []string{"privileges"}, roles.Requires)
	assert.Equal(t, []SourceRef{{File: "roles.yaml"}}, roles.Sources)

	forms, _ := d.Spec("forms")
	assert.Equal(t, []PackageRef{{File: "packages/forms-2.zip", Group: "forms"}}, forms.Packages)

	locations, _ := d.Spec("locations")
	assert.Equal(t, []Removal{{Type: metadata.TypeLocation, ID: "bbbbbbbb-0000-0000-0000-000000000002", Reason: "closed"}}, locations.Uninstall)

	_, ok = d.Spec("missing")
	assert.False(t, ok)
}

func TestLoad_DirectoryErrors(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "absent"), LoadModeFailFast, nil)
	assert.Equal(t, ErrCodeNotFound, firstLoadError(t, errs).Code)

	_, errs = Load(t.TempDir(), LoadModeFailFast, nil)
	assert.Equal(t, ErrCodeNoFiles, firstLoadError(t, errs).Code)

	file := filepath.Join(writeDistro(t, map[string]string{"x.txt": "x"}), "x.txt")
	_, errs = Load(file, LoadModeFailFast, nil)
	assert.Equal(t, ErrCodeNotFound, firstLoadError(t, errs).Code)
}

func TestLoad_SyntaxError(t *testing.T) {
	dir := writeDistro(t, map[string]string{"bad.cue": "package distro\n\nbundle: {\n"})

	_, errs := Load(dir, LoadModeFailFast, nil)

	code := firstLoadError(t, errs).Code
	assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, code)
}

func TestLoad_NoBundles(t *testing.T) {
	dir := writeDistro(t, map[string]string{"empty.cue": "package distro\n\nname: \"x\"\n"})

	_, errs := Load(dir, LoadModeFailFast, nil)

	assert.Equal(t, ErrCodeNoBundles, firstLoadError(t, errs).Code)
}

func TestLoad_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad package filename", `bundle: x: packages: [{file: "forms.zip", group: "forms"}]`, ErrCodePackage},
		{"package without group", `bundle: x: packages: [{file: "forms-1.zip"}]`, ErrCodePackage},
		{"requires not strings", `bundle: x: requires: [1]`, ErrCodeRequires},
		{"object without type", `bundle: x: objects: [{name: "View Forms"}]`, ErrCodeObject},
		{"object of unknown type", `bundle: x: objects: [{type: "spaceship", name: "x"}]`, ErrCodeObject},
		{"unsupported source", `bundle: x: sources: [{file: "roles.json"}]`, ErrCodeSource},
		{"uninstall without id", `bundle: x: uninstall: [{type: "location"}]`, ErrCodeUninstall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeDistro(t, map[string]string{"d.cue": "package distro\n\n" + tt.body + "\n"})

			_, errs := Load(dir, LoadModeFailFast, nil)

			loadErr := firstLoadError(t, errs)
			assert.Equal(t, tt.code, loadErr.Code)
			assert.Contains(t, loadErr.Message, "bundle.x")
		})
	}
}

func TestLoad_CollectAll(t *testing.T) {
	body := `package distro

bundle: a: packages: [{file: "a.zip", group: "a"}]
bundle: b: uninstall: [{id: "x"}]
bundle: c: objects: [{type: "privilege", name: "ok"}]
`
	dir := writeDistro(t, map[string]string{"d.cue": body})

	d, errs := Load(dir, LoadModeCollectAll, nil)
	assert.Len(t, errs, 2)
	require.Len(t, d.Specs, 1)
	assert.Equal(t, "c", d.Specs[0].ID)

	_, errs = Load(dir, LoadModeFailFast, nil)
	assert.Len(t, errs, 1)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeGeneric, Message: "boom"}
	assert.Equal(t, "E001: boom", err.Error())
}

func TestCompileBundle_CustomDecoder(t *testing.T) {
	v := cuecontext.New().CompileString(`bundle: x: objects: [{type: "thing", name: "a"}]`)
	require.NoError(t, v.Err())

	var gotType ir.Type
	var gotFields map[string]any
	spec, err := CompileBundle("x", v.LookupPath(cue.ParsePath("bundle.x")), func(t ir.Type, fields map[string]any) (ir.Object, error) {
		gotType, gotFields = t, fields
		return metadata.NewPrivilege("decoded", ""), nil
	})

	require.NoError(t, err)
	assert.Equal(t, ir.Type("thing"), gotType)
	assert.Equal(t, map[string]any{"name": "a"}, gotFields)
	assert.Len(t, spec.Objects, 1)
}

func TestCompileBundle_FieldError(t *testing.T) {
	v := cuecontext.New().CompileString(`bundle: x: uninstall: [{type: "location", reason: "gone"}]`)

	_, err := CompileBundle("x", v.LookupPath(cue.ParsePath("bundle.x")), nil)

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "uninstall", fieldErr.Field)
	assert.Equal(t, ErrCodeUninstall, fieldCode(fieldErr.Field))
}
