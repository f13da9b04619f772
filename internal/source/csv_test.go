package source

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/metadata"
)

func TestCSVSource_Roles(t *testing.T) {
	data := `name,description,inherited_roles[],privileges[]
# comment rows are skipped
Clerk,Front desk,,View Forms; Edit Forms
Nurse,,Clerk,
`
	src := NewCSVSource("roles.csv", strings.NewReader(data), metadata.TypeRole)
	objs := drain(t, src.Next)

	require.Len(t, objs, 2)
	assert.Equal(t, metadata.NewRole("Clerk", "Front desk", nil, []string{"Edit Forms", "View Forms"}), objs[0])
	assert.Equal(t, metadata.NewRole("Nurse", "", []string{"Clerk"}, nil), objs[1])
}

func TestCSVSource_BoolColumn(t *testing.T) {
	data := "uuid,name,published:bool\n" + uuidA + ",Intake,true\n"
	objs := drain(t, NewCSVSource("forms.csv", strings.NewReader(data), metadata.TypeForm).Next)

	require.Len(t, objs, 1)
	assert.True(t, objs[0].(*metadata.Form).Published)
}

func TestCSVSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad bool", "name,published:bool\nx,maybe\n"},
		{"unknown column", "name,colour\nx,red\n"},
		{"ragged row", "name,description\nx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCSVSource("bad.csv", strings.NewReader(tt.data), metadata.TypeForm)
			_, err := src.Next(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestCSVSource_LineNumbersInErrors(t *testing.T) {
	data := "name,published:bool\na,true\nb,nope\n"
	src := NewCSVSource("forms.csv", strings.NewReader(data), metadata.TypeForm)

	_, err := src.Next(context.Background())
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestCSVSource_Empty(t *testing.T) {
	assert.Empty(t, drain(t, NewCSVSource("empty.csv", strings.NewReader(""), metadata.TypeRole).Next))
	assert.Empty(t, drain(t, NewCSVSource("header.csv", strings.NewReader("name\n"), metadata.TypeRole).Next))
}

func TestCSVSource_DerivedUUIDs(t *testing.T) {
	data := "name\nWard 1\n"
	objs := drain(t, NewCSVSource("locations.csv", strings.NewReader(data), metadata.TypeLocation, WithDerivedUUIDs()).Next)

	require.Len(t, objs, 1)
	assert.Equal(t, metadata.NameUUID(metadata.TypeLocation, "Ward 1"), objs[0].(*metadata.Location).UUID)
}

func TestOpenCSV(t *testing.T) {
	fsys := fstest.MapFS{"p.csv": {Data: []byte("name\nP1\nP2\n")}}

	src, err := OpenCSV(fsys, "p.csv", metadata.TypePrivilege)
	require.NoError(t, err)
	assert.Len(t, drain(t, src.Next), 2)
}
