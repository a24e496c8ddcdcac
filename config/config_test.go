package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 500, cfg.Matching.KeypointCap)
	assert.True(t, cfg.Matching.CrossCheck)
	assert.Equal(t, 11, cfg.Matching.MinMatches)
	assert.Equal(t, 40, cfg.Scoring.NoMatchScore)
	assert.Equal(t, 10, cfg.DedupDistance)
	assert.Equal(t, 10*time.Second, cfg.ReferenceTimeout())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Matching, cfg.Matching)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
matching:
  min_matches: 20
scoring:
  no_match_score: 25
workers: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Matching.MinMatches)
	assert.Equal(t, 25, cfg.Scoring.NoMatchScore)
	assert.Equal(t, 3, cfg.Workers)

	// Values absent from the file keep their defaults
	assert.Equal(t, 500, cfg.Matching.KeypointCap)
	assert.True(t, cfg.Matching.CrossCheck)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("STREETVIEW_API_KEY", "sv-key")
	t.Setenv("VISION_API_KEY", "vision-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sv-key", cfg.Reference.APIKey)
	assert.Equal(t, "vision-key", cfg.Labels.APIKey)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
