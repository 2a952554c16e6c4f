package searchindex

import (
	"context"

	"github.com/google/uuid"

	"github.com/correlator-io/catalog/internal/domain"
)

// SearchResult is one ranked hit (spec §4.4).
type SearchResult struct {
	Resource *domain.Resource
	Score    float64
}

// SearchPage is a stable-order page of SearchResults.
type SearchPage struct {
	Results    []SearchResult
	TotalCount int
	PageNumber int
	PageSize   int
}

// Store defines the interface for full-text/faceted search over catalog
// Resources (spec §4.4). The Catalog Coordinator depends on this
// interface, not a concrete implementation.
type Store interface {
	// Search ranks Resources by name (highest weight), description, and
	// tags (lowest weight), with fuzzy matching on name. An empty query
	// returns an empty page, not an error.
	Search(ctx context.Context, query string, pageSize, pageNumber int) (*SearchPage, error)

	// Autocomplete returns up to limit distinct lowercased names that start
	// with prefix, in lexicographic order. Only such prefix matches are
	// returned; no fuzzy name matches are added after them.
	Autocomplete(ctx context.Context, prefix string, limit int) ([]string, error)

	// SearchByType restricts Search's ranking to a single resource type.
	SearchByType(ctx context.Context, resourceType domain.ResourceType, query string, pageSize, pageNumber int) (*SearchPage, error)

	// SearchByNamespace restricts Search's ranking to a single namespace.
	SearchByNamespace(ctx context.Context, namespace, query string, pageSize, pageNumber int) (*SearchPage, error)

	// SearchByTags restricts results to Resources carrying the given
	// tags; matchAll selects AND semantics, otherwise OR.
	SearchByTags(ctx context.Context, tags []string, matchAll bool, pageSize, pageNumber int) (*SearchPage, error)

	// GetFacets returns counts keyed "type:X", "namespace:X", "tag:X"
	// across all indexed Resources. query is accepted for forward
	// compatibility with result-scoped facets but is not yet applied —
	// counts are always computed over the full index, never narrowed to
	// query's result set.
	GetFacets(ctx context.Context, query string) (map[string]int64, error)

	// Index upserts a single Resource's search document.
	Index(ctx context.Context, resource *domain.Resource) error

	// BulkIndex upserts many Resources' search documents.
	BulkIndex(ctx context.Context, resources []*domain.Resource) error

	// Delete removes a Resource's search document.
	Delete(ctx context.Context, id uuid.UUID) error

	// ReindexAll replaces the index with one built from the given
	// Resources: the new generation is built under staging keys, each staged
	// key is renamed over its live key (atomic per key, not across the whole
	// index), and live keys the new generation did not write are then
	// deleted. A reader during the swap can see a mix of old and new keys,
	// but never an empty index.
	ReindexAll(ctx context.Context, resources []*domain.Resource) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
