package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheck_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "structure.json")
	writeFile(t, path, `[
		{"title": "Guides", "kind": "directory", "path": "guides", "children": [
			{"title": "Forms", "kind": "file", "path": "guides/forms"}
		]},
		{"title": "Intro", "kind": "file", "path": "getting-started"}
	]`)

	out, _, err := run(t, "", "check", path)
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 nodes, 2 files\n", out)
}

func TestCheck_PrintSorted(t *testing.T) {
	in := `[{"title": "Z", "kind": "file", "path": "changelog"}, {"title": "A", "kind": "file", "path": "getting-started"}]`
	out, _, err := run(t, in, "check", "--print", "-")
	require.NoError(t, err)

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, "getting-started", nodes[0]["path"])
}

func TestCheck_ReportsEveryViolation(t *testing.T) {
	in := `[{"kind": "file", "path": "a"}, {"title": "B", "kind": "folder", "path": "b"}]`
	_, errOut, err := run(t, in, "check", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, errOut, "[0].title")
	assert.Contains(t, errOut, "[1].kind")
}

func TestCheck_MissingFile(t *testing.T) {
	_, _, err := run(t, "", "check", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestBuild_ToFileAndStdout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "getting-started.md"), "# Getting Started\n")
	writeFile(t, filepath.Join(dir, "guides", "theming.md"), "# Theming\n")

	out, _, err := run(t, "", "build", dir)
	require.NoError(t, err)
	var nodes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &nodes))
	assert.Len(t, nodes, 2)

	outFile := filepath.Join(t.TempDir(), "structure.json")
	_, _, err = run(t, "", "build", dir, "-o", outFile)
	require.NoError(t, err)

	checked, _, err := run(t, "", "check", outFile)
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 nodes, 2 files\n", checked)
}

func TestBuild_NoContentDir(t *testing.T) {
	_, _, err := run(t, "", "build")
	assert.ErrorContains(t, err, "no content dir")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := run(t, "[]", "check", "-", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}
