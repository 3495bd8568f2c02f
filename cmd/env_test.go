package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioforge/asset-cli/internal/config"
)

func TestClassifyConfigMapping(t *testing.T) {
	c := &config.Config{}
	c.Pipeline.ScoreThreshold = 0.5
	c.Pipeline.Margin = 0.1
	c.Pipeline.TopK = 7
	c.Pipeline.ActivationCharacter = 0.35
	c.Pipeline.ActivationLocation = 0.25
	c.Pipeline.ActivationScene = 0.2
	c.Pipeline.PriorBonus = 0.12
	c.Extract.MaxRetries = 4

	cc := classifyConfig(c)

	assert.InDelta(t, 0.5, cc.ScoreThreshold, 1e-9)
	assert.InDelta(t, 0.1, cc.Margin, 1e-9)
	assert.Equal(t, 7, cc.TopK)
	assert.InDelta(t, 0.35, cc.ActivationCharacter, 1e-9)
	assert.InDelta(t, 0.25, cc.ActivationLocation, 1e-9)
	assert.InDelta(t, 0.2, cc.ActivationScene, 1e-9)
	assert.InDelta(t, 0.12, cc.PriorBonus, 1e-9)
	assert.Equal(t, 4, cc.MaxRetries)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  - id: t1
    name: Main Character
  - name: Forest Location
`), 0o644))

	types, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, types, 2)

	assert.Equal(t, "t1", types[0].ID)
	assert.Equal(t, "Main Character", types[0].Name)
	assert.Equal(t, "Forest Location", types[1].Name)
	assert.NotEmpty(t, types[1].ID)
}

func TestLoadCatalog_MissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  - id: t1\n"), 0o644))

	_, err := loadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := loadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
