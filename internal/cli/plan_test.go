package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSite(t *testing.T) {
	out, err := execute(t, "plan", siteDir)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "plan_site", []byte(out))
}

func TestPlanSiteJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "plan", siteDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	ids := make([]string, 0, len(resp.Data.Steps))
	for _, s := range resp.Data.Steps {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"privileges", "roles", "forms", "locations"}, ids)
	assert.Equal(t, []string{"packages/forms-2.zip (forms)"}, resp.Data.Steps[2].Packages)
	assert.Equal(t, 1, resp.Data.Steps[3].Uninstall)
}

func TestDeployDryRunPrintsPlan(t *testing.T) {
	db := t.TempDir() + "/site.db"
	out, err := execute(t, "--db", db, "deploy", "--dry-run", siteDir)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "plan_site", []byte(out))
	assert.NoFileExists(t, db)
}

func TestPlanCycle(t *testing.T) {
	out, err := execute(t, "plan", cycleDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeCycle)
	assert.Contains(t, out, "Error [E310]")
}

func TestPlanMissingDirectory(t *testing.T) {
	_, err := execute(t, "plan", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}
