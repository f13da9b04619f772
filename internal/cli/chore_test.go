package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metadeploy/internal/metadata"
)

func TestChoreRunMarksDone(t *testing.T) {
	db := filepath.Join(t.TempDir(), "site.db")
	id := metadata.PruneRoleReferencesID

	out, err := execute(t, "--db", db, "chore", "list")
	require.NoError(t, err)
	assert.Regexp(t, `metadata\.prune-role-references\s+pending`, out)

	out, err = execute(t, "--db", db, "chore", "run", id)
	require.NoError(t, err)
	assert.Equal(t, "0 of 0 roles updated\nChore "+id+" done\n", out)

	out, err = execute(t, "--db", db, "chore", "list")
	require.NoError(t, err)
	assert.Regexp(t, `metadata\.prune-role-references\s+done`, out)

	out, err = execute(t, "--db", db, "chore", "run", id)
	require.NoError(t, err)
	assert.Equal(t, "Chore "+id+" skipped: already done\n", out)

	out, err = execute(t, "--db", db, "chore", "run", "--force", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Chore "+id+" done")
}

func TestChoreRunAfterDeploy(t *testing.T) {
	db := filepath.Join(t.TempDir(), "site.db")
	_, err := runDeployOnce(t, newDeployOptions(db), siteDir)
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--format", "json", "chore", "run", "--force", metadata.PruneRoleReferencesID)
	require.NoError(t, err)
	assert.Contains(t, out, `"ran": true`)
	assert.Contains(t, out, `0 of 2 roles updated`)
}

func TestChoreRunUnknown(t *testing.T) {
	db := filepath.Join(t.TempDir(), "site.db")

	out, err := execute(t, "--db", db, "chore", "run", "no.such-chore")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `Error [E304]: unknown chore "no.such-chore"`)
}
