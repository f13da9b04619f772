package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	siteDir  = filepath.Join("testdata", "site")
	cycleDir = filepath.Join("testdata", "cycle")
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestValidateSite(t *testing.T) {
	out, err := execute(t, "validate", siteDir)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "validate_site", []byte(out))
}

func TestValidateSiteJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", siteDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 4, resp.Data.Bundles)
	assert.Empty(t, resp.Data.Problems)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, out, "no CUE files found")
}

func TestValidateGraphProblems(t *testing.T) {
	out, err := execute(t, "validate", cycleDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 problem(s)")

	assert.Contains(t, out, "\u2717 Validation failed")
	assert.Contains(t, out, "E309: bundle d requires missing, which is not available")
	assert.Contains(t, out, "E310: dependency cycle: a -> b -> c -> a")
}

func TestValidateGraphProblemsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", cycleDir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Problems, 2)

	unresolved, cycle := resp.Data.Problems[0], resp.Data.Problems[1]
	assert.Equal(t, ErrCodeUnresolved, unresolved.Code)
	assert.Equal(t, "d", unresolved.Bundle)
	assert.Equal(t, ErrCodeCycle, cycle.Code)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
	assert.Equal(t, ErrCodeUnresolved, resp.Error.Code)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	dir := t.TempDir()
	src := `package site

bundle: good: objects: [{type: "privilege", name: "View Forms"}]
bundle: nopkg: packages: [{file: "forms.zip", group: "forms"}]
bundle: nosrc: sources: [{file: "roles.json"}]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.cue"), []byte(src), 0o644))

	res, err := ValidateDistroDir(dir)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 1, res.Bundles)
	require.Len(t, res.Problems, 2)

	codes := []string{res.Problems[0].Code, res.Problems[1].Code}
	assert.ElementsMatch(t, []string{"E202", "E204"}, codes)
	for _, p := range res.Problems {
		assert.Contains(t, p.Message, "bundle.")
	}
}

func TestRelativeTo(t *testing.T) {
	abs, err := filepath.Abs(siteDir)
	require.NoError(t, err)

	assert.Equal(t, "site.cue", relativeTo(siteDir, filepath.Join(abs, "site.cue")))
	assert.Equal(t, "data/location.csv", relativeTo(siteDir, filepath.Join(abs, "data", "location.csv")))
	assert.Equal(t, "/etc/other.cue", relativeTo(siteDir, "/etc/other.cue"))
}
