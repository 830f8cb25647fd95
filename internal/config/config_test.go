package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notable/internal/config"
	"github.com/pbaille/notable/internal/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "database:\n  path: /tmp/test.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 0.85, cfg.Normalize.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Normalize.MinClusterSize)
	assert.Equal(t, 3072, cfg.Embedding.Dimensions)
	assert.Equal(t, "gemini-embedding-exp-03-07", cfg.Embedding.Model)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
database:
  path: /tmp/other.db
normalize:
  similarity_threshold: 0.9
  min_cluster_size: 3
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Normalize.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Normalize.MinClusterSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 0.1, cfg.DistanceThreshold(), 1e-9)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"threshold out of range": "normalize:\n  similarity_threshold: 1.5\n",
		"cluster size too small": "normalize:\n  min_cluster_size: 1\n",
		"bad log level":          "log:\n  level: verbose\n",
		"bad dimensions":         "embedding:\n  dimensions: -1\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, errs.CodeConfigInvalid))
		})
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeConfigLoad))
}
