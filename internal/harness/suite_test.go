package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDir(t *testing.T) {
	result, err := RunDir(scenarioDir)
	require.NoError(t, err)

	assert.Equal(t, 8, result.TotalScenarios)
	assert.Equal(t, 8, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestRunDir_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("a_pass.yaml", `name: pass
description: three products
flow:
  - read: Products
    count: true
    expect: {count: 3}
`)
	write("b_fail.yml", `name: fail
description: wrong count
flow:
  - read: Products
    count: true
    expect: {count: 4}
`)
	write("c_broken.yaml", "name: broken\n")
	write("d_seed.yaml", `name: seed
description: unknown set in fixture
fixture: {Customers: [{Id: 1}]}
flow:
  - read: Products
`)
	write("notes.txt", "not a scenario")

	result, err := RunDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Failures, 3)

	assert.Equal(t, filepath.Join(dir, "b_fail.yml"), result.Failures[0].ScenarioPath)
	assert.Contains(t, result.Failures[0].Error, "expected count 4, got 3")
	assert.Contains(t, result.Failures[1].Error, "failed to load scenario")
	assert.Contains(t, result.Failures[2].Error, "scenario execution failed")
}

func TestFindScenarios_Empty(t *testing.T) {
	paths, err := FindScenarios(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRunFiles_Empty(t *testing.T) {
	result := RunFiles(nil)
	assert.Zero(t, result.TotalScenarios)
	assert.Nil(t, result.Failures)
}
