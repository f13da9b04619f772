package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/reconcile"
	"github.com/roach88/metadeploy/internal/store"
	"github.com/roach88/metadeploy/internal/testutil"
)

const (
	uuidA = "aaaaaaaa-0000-0000-0000-000000000001"
	uuidB = "bbbbbbbb-0000-0000-0000-000000000002"
	uuidC = "cccccccc-0000-0000-0000-000000000003"
)

type env struct {
	ctx     context.Context
	store   *store.Store
	session *store.Session
	r       *reconcile.Reconciler
	clock   *testutil.FixedClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := testutil.NewFixedClock(time.Time{})
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), New, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	session := s.NewSession()
	reg, err := NewRegistry(session, clock.Now)
	require.NoError(t, err)

	return &env{
		ctx:     context.Background(),
		store:   s,
		session: session,
		r:       reconcile.New(reg),
		clock:   clock,
	}
}

// sync flushes and clears, so the next read comes from the database.
func (e *env) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, e.session.Flush(e.ctx))
	e.session.Clear()
}
