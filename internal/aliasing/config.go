// Package aliasing resolves resource-name aliases for the catalog.
//
// Different producers (ingestion pipelines, bulk imports, older callers of
// the coordinator) sometimes address the same Resource under different
// name conventions, which breaks GetByName lookups keyed on the canonical
// name. This package loads pattern-based rewrite rules and resolves an
// incoming name to its canonical form before the Resource Store looks it
// up (spec §4.3 "GetByName").
//
// Example configuration (.catalog-aliases.yaml):
//
//	resource_name_patterns:
//	  - pattern: "legacy_warehouse/{name}"
//	    canonical: "postgres.marts.{name}"
//
// This transforms "legacy_warehouse/customers" → "postgres.marts.customers"
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/catalog/internal/config"
)

type (
	// NamePattern defines a pattern-based transformation rule for resource
	// names.
	//
	// Patterns are evaluated in order; first match wins.
	// Pattern syntax:
	//   - {variable} captures any characters except "/"
	//   - {variable*} captures any characters including "/" (for paths)
	//   - Literal characters match exactly
	//
	// Examples:
	//
	//	Pattern: "legacy_warehouse/{name}"
	//	Canonical: "postgres.marts.{name}"
	//	Input: "legacy_warehouse/customers" → Output: "postgres.marts.customers"
	NamePattern struct {
		Pattern   string `yaml:"pattern"`
		Canonical string `yaml:"canonical"`
	}

	// Config holds resource-name pattern configuration loaded from
	// .catalog-aliases.yaml.
	Config struct {
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		ResourceNamePatterns []NamePattern `yaml:"resource_name_patterns"`
	}
)

const (
	// DefaultConfigPath is the default location for the catalog alias file.
	DefaultConfigPath = ".catalog-aliases.yaml"

	// ConfigPathEnvVar is the environment variable name for a custom config path.
	ConfigPathEnvVar = "CATALOG_ALIAS_CONFIG_PATH"
)

// LoadConfig loads pattern configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if file doesn't exist - patterns are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// This graceful degradation ensures the coordinator can start even without
// patterns configured, since resource-name aliasing is an optional feature.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		ResourceNamePatterns: []NamePattern{},
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("alias config file not found, continuing without patterns",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("failed to read alias config file, continuing without patterns",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("failed to parse alias config file, continuing without patterns",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{ResourceNamePatterns: []NamePattern{}}, nil
	}

	if cfg.ResourceNamePatterns == nil {
		cfg.ResourceNamePatterns = []NamePattern{}
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path specified in
// CATALOG_ALIAS_CONFIG_PATH, falling back to DefaultConfigPath.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
