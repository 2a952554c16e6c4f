package aliasing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	content := `
resource_name_patterns:
  - pattern: "legacy_warehouse/{name}"
    canonical: "postgres.marts.{name}"
  - pattern: "s3://bucket/{path*}"
    canonical: "lake.{path}"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.ResourceNamePatterns, 2)
	assert.Equal(t, "legacy_warehouse/{name}", cfg.ResourceNamePatterns[0].Pattern)
	assert.Equal(t, "postgres.marts.{name}", cfg.ResourceNamePatterns[0].Canonical)
}

func TestLoadConfigEmptyPatternsSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	content := "resource_name_patterns:\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/catalog-aliases.yaml")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	content := "resource_name_patterns:\n  - pattern: [invalid yaml\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigOnlyComments(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	content := "# nothing here\n# still nothing\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte(""), 0o600))

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigNoPatternsKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalog-aliases.yaml")

	content := "some_other_config:\n  key: value\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.ResourceNamePatterns)
}

func TestLoadConfigFromEnvDefaultPath(t *testing.T) {
	os.Unsetenv(ConfigPathEnvVar)

	cfg, err := LoadConfigFromEnv()

	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestLoadConfigFromEnvCustomPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-aliases.yaml")

	content := `
resource_name_patterns:
  - pattern: "legacy/{name}"
    canonical: "canonical.{name}"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadConfigFromEnv()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Len(t, cfg.ResourceNamePatterns, 1)
	assert.Equal(t, "canonical.{name}", cfg.ResourceNamePatterns[0].Canonical)
}
