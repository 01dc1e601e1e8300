package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// scenariosDir holds the scenarios shared with the scenario package.
var scenariosDir = filepath.Join("..", "scenario", "testdata", "scenarios")

const failingScenario = `
name: wrong_links
description: "expects a link that is never made"
nodes:
  - name: a
  - name: b
steps:
  - op: link
    node: a
    target: b
expect:
  - node: a
    links: []
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// copyScenario copies a shared scenario into dir.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	return writeFile(t, dir, name+".yaml", string(data))
}
