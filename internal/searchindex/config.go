// Package searchindex provides full-text and faceted search over catalog
// Resources (spec §4.4), backed by Redis.
package searchindex

import (
	"strings"

	"github.com/correlator-io/catalog/internal/config"
	"github.com/correlator-io/catalog/internal/domain"
)

// Config holds Redis connection configuration, grounded on
// evalgo-org-eve/db/repository.NewRedisRepository's url-based constructor.
type Config struct {
	URL string
}

// LoadConfig loads Redis configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		URL: config.GetEnvStr("CATALOG_SEARCH_INDEX_URL", "redis://localhost:6379/0"),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return domain.Invalidf("search index URL cannot be empty")
	}

	return nil
}
