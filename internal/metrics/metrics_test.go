package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/content"
	"github.com/roach88/metadeploy/internal/reconcile"
)

var (
	_ reconcile.Observer = (*Recorder)(nil)
	_ bundle.Observer    = (*Recorder)(nil)
	_ content.Observer   = (*Recorder)(nil)
)

func TestRecorder_ObjectsInstalled(t *testing.T) {
	r := NewRecorder()
	r.ObjectInstalled("role", reconcile.OutcomeCreated)
	r.ObjectInstalled("role", reconcile.OutcomeCreated)
	r.ObjectInstalled("role", reconcile.OutcomeUpdated)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.objectsInstalled.WithLabelValues("role", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.objectsInstalled.WithLabelValues("role", "updated")))
}

func TestRecorder_Bundles(t *testing.T) {
	r := NewRecorder()
	r.BundleInstalled("a", 5*time.Millisecond)
	r.BundleInstalled("b", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.bundlesInstalled))
	assert.Equal(t, 1, testutil.CollectAndCount(r.bundleSeconds))
}

func TestRecorder_RefreshFailures(t *testing.T) {
	r := NewRecorder()
	r.ManagerRefreshed("bundles", time.Second, nil)
	r.ManagerRefreshed("chores", time.Second, errors.New("boom"))

	expected := `
# HELP metadeploy_refresh_failures_total Content manager refreshes that failed.
# TYPE metadeploy_refresh_failures_total counter
metadeploy_refresh_failures_total{manager="chores"} 1
`
	require.NoError(t, testutil.CollectAndCompare(r.refreshFailures, strings.NewReader(expected)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.refreshSeconds))
}

func TestRecorder_RunFinished(t *testing.T) {
	r := NewRecorder()
	at := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	r.RunFinished(at, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastRunSuccess))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(r.lastRunTime))

	r.RunFinished(at, errors.New("failed"))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastRunSuccess))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObjectInstalled("location", reconcile.OutcomeCreated)
	path := filepath.Join(t.TempDir(), "metadeploy.prom")

	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `metadeploy_objects_installed_total{outcome="created",type="location"} 1`)
}

func TestRecorder_Isolated(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.BundleInstalled("x", time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.bundlesInstalled))
}
