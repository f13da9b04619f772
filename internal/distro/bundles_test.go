package distro

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/metadata"
	"github.com/roach88/metadeploy/internal/reconcile"
	"github.com/roach88/metadeploy/internal/store"
	"github.com/roach88/metadeploy/internal/testutil"
)

type recordingInstaller struct {
	calls []string
}

func (r *recordingInstaller) InstallPackage(_ context.Context, filename, groupID string) (bool, error) {
	r.calls = append(r.calls, groupID+":"+filename)
	return true, nil
}

type deployEnv struct {
	ctx      context.Context
	session  *store.Session
	toolkit  *bundle.Toolkit
	packages *recordingInstaller
}

func newDeployEnv(t *testing.T) *deployEnv {
	t.Helper()
	clock := testutil.NewFixedClock(time.Time{})
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), metadata.New, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	session := s.NewSession()
	reg, err := metadata.NewRegistry(session, clock.Now)
	require.NoError(t, err)
	packages := &recordingInstaller{}
	return &deployEnv{
		ctx:      context.Background(),
		session:  session,
		toolkit:  &bundle.Toolkit{Reconciler: reconcile.New(reg), Packages: packages},
		packages: packages,
	}
}

func (e *deployEnv) get(t *testing.T, typ ir.Type, id string) ir.Object {
	t.Helper()
	obj, err := e.session.Get(e.ctx, typ, id)
	require.NoError(t, err)
	require.False(t, ir.IsNil(obj), "%s %q not found", typ, id)
	return obj
}

func TestBundles_InstallBasicDistro(t *testing.T) {
	d, errs := Load("testdata/basic", LoadModeFailFast, nil)
	require.Empty(t, errs)
	e := newDeployEnv(t)

	bundles := d.Bundles(e.toolkit, os.DirFS("testdata/basic"))
	report, err := bundle.NewResolver(e.session).InstallBundles(e.ctx, bundles)

	require.NoError(t, err)
	assert.Equal(t, []string{"privileges", "roles", "forms", "locations"}, report.Order)
	assert.Equal(t, []string{"forms:packages/forms-2.zip"}, e.packages.calls)

	nurse := e.get(t, metadata.TypeRole, "Nurse").(*metadata.Role)
	assert.Equal(t, []string{"Clerk"}, nurse.InheritedRoles)

	ward1 := e.get(t, metadata.TypeLocation, "aaaaaaaa-0000-0000-0000-000000000001").(*metadata.Location)
	assert.False(t, ward1.IsRetired())
	ward2 := e.get(t, metadata.TypeLocation, "bbbbbbbb-0000-0000-0000-000000000002").(*metadata.Location)
	assert.True(t, ward2.IsRetired())
	assert.Equal(t, "closed", ward2.RetireReason)
	assert.Equal(t, "Closed in 2024", ward2.Description)
}

func TestBundles_SourceTypeOverride(t *testing.T) {
	fsys := fstest.MapFS{
		"privs.yaml": {Data: []byte("name: A\n---\nname: B\n")},
		"places.csv": {Data: []byte("uuid,name\naaaaaaaa-0000-0000-0000-000000000001,Ward 1\n")},
	}
	spec := BundleSpec{ID: "x", Sources: []SourceRef{
		{File: "privs.yaml", Type: metadata.TypePrivilege},
		{File: "places.csv", Type: metadata.TypeLocation},
	}}
	e := newDeployEnv(t)

	require.NoError(t, spec.Bundle(e.toolkit, fsys).Install(e.ctx))

	e.get(t, metadata.TypePrivilege, "A")
	e.get(t, metadata.TypePrivilege, "B")
	e.get(t, metadata.TypeLocation, "aaaaaaaa-0000-0000-0000-000000000001")
}

func TestBundles_MissingSourceFile(t *testing.T) {
	spec := BundleSpec{ID: "x", Sources: []SourceRef{{File: "absent.yaml"}}}
	e := newDeployEnv(t)

	err := spec.Bundle(e.toolkit, fstest.MapFS{}).Install(e.ctx)

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBundles_RequiresCarriedOver(t *testing.T) {
	spec := BundleSpec{ID: "roles", Requires: []string{"privileges"}}
	b := spec.Bundle(nil, nil)

	assert.Equal(t, "roles", b.ID())
	assert.Equal(t, []string{"privileges"}, b.Requires())
}
