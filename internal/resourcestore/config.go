// Package resourcestore persists catalog Resources with optimistic
// concurrency and paged scans (spec §4.1), backed by PostgreSQL.
package resourcestore

import (
	"strings"
	"time"

	"github.com/correlator-io/catalog/internal/config"
	"github.com/correlator-io/catalog/internal/domain"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// Config holds PostgreSQL connection configuration with production-ready
// defaults, grounded on internal/storage.Config from the teacher.
type Config struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads PostgreSQL configuration from environment variables,
// falling back to production-ready defaults. Recognised keys:
// catalog.resourceStore.databaseURL (CATALOG_RESOURCE_STORE_DATABASE_URL),
// plus the pool-tuning keys below.
func LoadConfig() *Config {
	return &Config{
		DatabaseURL:     config.GetEnvStr("CATALOG_RESOURCE_STORE_DATABASE_URL", ""),
		MaxOpenConns:    config.GetEnvInt("CATALOG_RESOURCE_STORE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("CATALOG_RESOURCE_STORE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("CATALOG_RESOURCE_STORE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("CATALOG_RESOURCE_STORE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return domain.Invalidf("resource store database URL cannot be empty")
	}

	return nil
}
