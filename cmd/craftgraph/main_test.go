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

// setupConfig writes a config file and a base catalog into a temp dir and
// returns the config path.
func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "forging.json"), []byte(`{
		"Drill": {"Engine": 2, "Casing": 1},
		"Engine": {"Gear": 3}
	}`), 0o644))

	cfgPath := filepath.Join(dir, "craftgraph.yaml")
	cfg := "data_dir: " + dataDir + "\n" +
		"fetch:\n  enabled: false\n" +
		"watch:\n  enabled: false\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "craftgraph v"), out)
}

func TestRecipe_Tree(t *testing.T) {
	cfg := setupConfig(t)
	out, err := execute(t, "--config", cfg, "--no-color", "recipe", "Drill", "-n", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "2 × Drill")
	assert.Contains(t, out, "4 × Engine")
	assert.Contains(t, out, "12 × Gear")
	assert.Contains(t, out, "Raw materials")
}

func TestRecipe_JSON(t *testing.T) {
	cfg := setupConfig(t)
	out, err := execute(t, "--config", cfg, "recipe", "Engine", "--json")
	require.NoError(t, err)

	var resp struct {
		Name         string           `json:"name"`
		SimpleRecipe map[string]int64 `json:"simple_recipe"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Engine", resp.Name)
	assert.Equal(t, map[string]int64{"Gear": 3}, resp.SimpleRecipe)
}

func TestRecipe_Errors(t *testing.T) {
	cfg := setupConfig(t)

	_, err := execute(t, "--config", cfg, "recipe", "Nothing", "--json")
	assert.ErrorContains(t, err, "no recipe")

	_, err = execute(t, "--config", cfg, "recipe", "Drill", "-n", "0")
	assert.ErrorContains(t, err, "positive")
}

func TestNames_Filter(t *testing.T) {
	cfg := setupConfig(t)

	out, err := execute(t, "--config", cfg, "names")
	require.NoError(t, err)
	assert.Equal(t, "Drill\nEngine\n", out)

	out, err = execute(t, "--config", cfg, "names", "--filter", "ENG")
	require.NoError(t, err)
	assert.Equal(t, "Engine\n", out)
}

func TestInventory_SetGetAndPlan(t *testing.T) {
	cfg := setupConfig(t)

	out, err := execute(t, "--config", cfg, "inventory", "set", "Gear", "6")
	require.NoError(t, err)
	assert.Equal(t, "Gear: 6\n", out)

	out, err = execute(t, "--config", cfg, "inventory", "set", "Gear", "--delta", "-1")
	require.NoError(t, err)
	assert.Equal(t, "Gear: -1 → 5\n", out)

	out, err = execute(t, "--config", cfg, "inventory", "get", "Gear")
	require.NoError(t, err)
	assert.Equal(t, "Gear: 5\n", out)

	out, err = execute(t, "--config", cfg, "plan", "Drill", "--json")
	require.NoError(t, err)
	var p struct {
		Missing   map[string]int64 `json:"missing"`
		Craftable bool             `json:"craftable"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.False(t, p.Craftable)
	assert.Equal(t, int64(1), p.Missing["Gear"])
	assert.Equal(t, int64(1), p.Missing["Casing"])
}

func TestInventory_SetArgs(t *testing.T) {
	cfg := setupConfig(t)

	_, err := execute(t, "--config", cfg, "inventory", "set", "Gear")
	assert.ErrorContains(t, err, "exactly one")

	_, err = execute(t, "--config", cfg, "inventory", "set", "Gear", "4", "--delta", "1")
	assert.ErrorContains(t, err, "exactly one")

	_, err = execute(t, "--config", cfg, "inventory", "set", "Gear", "lots")
	assert.ErrorContains(t, err, "non-negative integer")
}

func TestFetch_NoSources(t *testing.T) {
	cfg := setupConfig(t)
	dataDir := filepath.Join(filepath.Dir(cfg), "data")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "remote_sources.json"), []byte(`{"sources":[]}`), 0o644))

	out, err := execute(t, "--config", cfg, "fetch")
	require.NoError(t, err)
	assert.Equal(t, "No remote sources configured.\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "names")
	assert.Error(t, err)
}
