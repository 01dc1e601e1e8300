package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateSharedScenarios(t *testing.T) {
	out, err := executeValidate(t, "text",
		filepath.Join(scenariosDir, "adopt_and_move.yaml"),
		filepath.Join(scenariosDir, "lazy_family.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "(adopt_and_move)")
	assert.Contains(t, out, "(lazy_family)")
}

func TestValidateReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", failingScenario)
	bad := writeFile(t, dir, "bad.yaml", failingScenario+"colour: blue\n")

	out, err := executeValidate(t, "json", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Files, 2)
	assert.True(t, resp.Data.Files[0].Valid)
	assert.Equal(t, "wrong_links", resp.Data.Files[0].Name)
	assert.False(t, resp.Data.Files[1].Valid)
	assert.Contains(t, resp.Data.Files[1].Error, "colour")
}

func TestValidateUnknownNodeReference(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ghost.yaml", `
name: ghost
description: "links to a node that does not exist"
nodes:
  - name: a
steps:
  - op: link
    node: a
    target: ghost
expect: []
`)

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, out, "✗ "+path)
	assert.Contains(t, out, "ghost")
}

func TestValidateMissingFile(t *testing.T) {
	_, err := executeValidate(t, "text", "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
