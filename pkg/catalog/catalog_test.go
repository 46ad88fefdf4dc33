package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactguard/impactguard/pkg/config"
	"github.com/impactguard/impactguard/pkg/models"
)

func TestNewFallsBackToDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DatabasePath = t.TempDir()

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Len(t, c.Vectors(), 9)
	require.NotNil(t, c.Get("prompt_injection"))
	assert.Equal(t, models.SeverityCritical, c.Get("prompt_injection").Severity)
	assert.Nil(t, c.Get("unknown_vector"))
}

func TestNewLoadsVectorsFile(t *testing.T) {
	dir := t.TempDir()
	custom := []models.TestVector{
		{ID: "custom_check", Name: "Custom Check", Category: models.CategoryOWASP, Severity: models.SeverityLow},
	}
	data, err := json.Marshal(custom)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.json"), data, 0o644))

	cfg := config.DefaultConfig()
	cfg.DatabasePath = dir

	c, err := New(cfg)
	require.NoError(t, err)
	require.Len(t, c.Vectors(), 1)
	assert.Equal(t, "custom_check", c.Vectors()[0].ID)
}

func TestNewRejectsMalformedVectorsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.json"), []byte("{nope"), 0o644))

	cfg := config.DefaultConfig()
	cfg.DatabasePath = dir

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestVectorsReturnsACopy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DatabasePath = t.TempDir()

	c, err := New(cfg)
	require.NoError(t, err)

	vectors := c.Vectors()
	vectors[0].ID = "tampered"
	assert.NotEqual(t, "tampered", c.Vectors()[0].ID)
}

func TestByCategoryGroupsDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DatabasePath = t.TempDir()

	c, err := New(cfg)
	require.NoError(t, err)

	groups := c.ByCategory()
	assert.Len(t, groups[models.CategoryOWASP], 4)
	assert.Len(t, groups[models.CategoryNIST], 2)
	assert.Len(t, groups[models.CategoryFairness], 1)
	assert.Len(t, groups[models.CategoryPrivacy], 1)
	assert.Len(t, groups[models.CategoryExploit], 1)
}
