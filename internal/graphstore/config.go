// Package graphstore persists typed directed Relationships between
// Resources and answers bounded-depth traversal and cycle-detection
// queries (spec §4.3), backed by Neo4j.
package graphstore

import (
	"strings"

	"github.com/correlator-io/catalog/internal/config"
	"github.com/correlator-io/catalog/internal/domain"
)

const (
	// MaxDependencyDepth bounds Dependencies/Dependents traversals.
	MaxDependencyDepth = 10
	// MaxLineageDepth bounds LineageUpstream/LineageDownstream traversals
	// and the cycle-detection path search.
	MaxLineageDepth = 50
)

// Config holds Neo4j connection configuration, grounded on
// evalgo-org-eve/db/repository.NewNeo4jRepository's (uri, username,
// password) constructor shape.
type Config struct {
	URI      string
	Username string
	Password string
}

// LoadConfig loads Neo4j configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		URI:      config.GetEnvStr("CATALOG_GRAPH_STORE_URI", "neo4j://localhost:7687"),
		Username: config.GetEnvStr("CATALOG_GRAPH_STORE_USERNAME", "neo4j"),
		Password: config.GetEnvStr("CATALOG_GRAPH_STORE_PASSWORD", ""),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URI) == "" {
		return domain.Invalidf("graph store URI cannot be empty")
	}

	if strings.TrimSpace(c.Username) == "" {
		return domain.Invalidf("graph store username cannot be empty")
	}

	return nil
}
