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

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBehavioursListsReferencePlugins(t *testing.T) {
	out, _, err := execute(t, "behaviours")
	require.NoError(t, err)
	for _, want := range []string{
		"PLUGIN",
		"arithmetic::add",
		"arithmetic::increment",
		"logical::not",
		"connector::default_connector",
		"connector::propagation_counter",
	} {
		assert.Contains(t, out, want)
	}
}

func TestDemoPropagates(t *testing.T) {
	out, _, err := execute(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "increment.result = 21\n")
	assert.Contains(t, out, "double.result = 42\n")
	assert.Contains(t, out, "not.result = false\n")
	assert.Contains(t, out, "propagations = 1\n")
	assert.Contains(t, out, "behaviours = 6\n")

	out, _, err = execute(t, "demo", "--input", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "double.result = 10\n")
}

func TestTraceWritesJSONLines(t *testing.T) {
	_, errOut, err := execute(t, "demo", "--trace", "--config", writeConfig(t, "quiet.yaml", "log:\n  level: error\n"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(errOut), "\n")
	require.NotEmpty(t, lines)
	ops := map[string]bool{}
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		op, _ := entry["operation"].(string)
		ops[op] = true
	}
	assert.True(t, ops["install_plugin"])
	assert.True(t, ops["create_relation"])
	assert.True(t, ops["set_property"])
}

func TestDemoSaveRequiresSnapshotStore(t *testing.T) {
	_, _, err := execute(t, "demo", "--save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot store not configured")
}

func TestExportRequiresBlobStore(t *testing.T) {
	_, _, err := execute(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob store not configured")
}

func TestSaveThenExportFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	blobRoot := filepath.Join(dir, "blobs")
	cfg := writeConfig(t, "graph.toml", strings.Join([]string{
		"[log]",
		`level = "warn"`,
		"[storage]",
		`driver = "sqlite"`,
		`sqlite_path = "` + filepath.ToSlash(filepath.Join(dir, "graph.db")) + `"`,
		"[blob]",
		`driver = "fs"`,
		`fs_root = "` + filepath.ToSlash(blobRoot) + `"`,
		"",
	}, "\n"))

	_, _, err := execute(t, "--config", cfg, "demo", "--save")
	require.NoError(t, err)

	out, _, err := execute(t, "--config", cfg, "export", "nightly", "--from-snapshot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "export nightly: 3 entities, 2 relations\n"), out)

	manifest, err := os.ReadFile(filepath.Join(blobRoot, "exports", "nightly", "manifest.json"))
	require.NoError(t, err)
	var decoded struct {
		ID        string   `json:"id"`
		Entities  []string `json:"entities"`
		Relations []string `json:"relations"`
	}
	require.NoError(t, json.Unmarshal(manifest, &decoded))
	assert.Equal(t, "nightly", decoded.ID)
	assert.Len(t, decoded.Entities, 3)
	require.Len(t, decoded.Relations, 2)
	for _, key := range decoded.Relations {
		assert.Contains(t, key, "connector.default_connector")
		_, err := os.Stat(filepath.Join(blobRoot, filepath.FromSlash(key)))
		assert.NoError(t, err)
	}

	_, _, err = execute(t, "--config", cfg, "export", "nightly", "--from-snapshot")
	require.Error(t, err, "export ids are not reused")
}

func TestUnknownConfigDriver(t *testing.T) {
	_, _, err := execute(t, "--config", writeConfig(t, "bad.yaml", "storage:\n  driver: tape\n"), "behaviours")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
