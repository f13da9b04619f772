package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/testutil"
)

// itemFactory decodes rows written from *testutil.Item values.
func itemFactory(t ir.Type) (ir.Object, error) {
	switch t {
	case testutil.ItemType, "other":
		return &testutil.Item{Kind: t}, nil
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) (*Store, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(time.Time{})
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, itemFactory, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}
