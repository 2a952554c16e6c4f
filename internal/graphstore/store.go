package graphstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/correlator-io/catalog/internal/domain"
)

// Store defines the interface for Relationship persistence and graph
// traversal (spec §4.3). The Catalog Coordinator depends on this
// interface, not a concrete implementation.
type Store interface {
	// Get retrieves a Relationship by id. Returns domain.ErrNotFound if
	// absent.
	Get(ctx context.Context, id uuid.UUID) (*domain.Relationship, error)

	// Create persists a new edge. Callers must call HasCycle first for
	// relationship types that require acyclicity (domain.RequiresCycleCheck).
	Create(ctx context.Context, relationship *domain.Relationship) (*domain.Relationship, error)

	// Delete removes a Relationship by id. Returns false if it did not
	// exist.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// GetBySource returns every Relationship originating at sourceID.
	GetBySource(ctx context.Context, sourceID uuid.UUID) ([]*domain.Relationship, error)

	// GetByTarget returns every Relationship terminating at targetID.
	GetByTarget(ctx context.Context, targetID uuid.UUID) ([]*domain.Relationship, error)

	// GetByType returns every Relationship of the given type.
	GetByType(ctx context.Context, relationshipType domain.RelationshipType) ([]*domain.Relationship, error)

	// GetBetween returns every Relationship directly connecting source
	// and target, regardless of type.
	GetBetween(ctx context.Context, sourceID, targetID uuid.UUID) ([]*domain.Relationship, error)

	// Dependencies returns the Resources reachable from id by following
	// DependsOn edges outward, bounded to depth (1..MaxDependencyDepth).
	// Returns domain.ErrInvalid if depth is out of range.
	Dependencies(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error)

	// Dependents returns the Resources that reach id by DependsOn edges,
	// bounded to depth (1..MaxDependencyDepth).
	Dependents(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error)

	// LineageUpstream returns the Resources that DerivesFrom/Produces
	// trace back to, bounded to depth (1..MaxLineageDepth).
	LineageUpstream(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error)

	// LineageDownstream returns the Resources derived/produced from id,
	// bounded to depth (1..MaxLineageDepth).
	LineageDownstream(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error)

	// HasCycle reports whether adding an edge source->target of the given
	// type would introduce a cycle: true iff a directed path of edges of
	// the same type already exists from target back to source (bounded to
	// MaxLineageDepth).
	HasCycle(ctx context.Context, source, target uuid.UUID, relationshipType domain.RelationshipType) (bool, error)

	// UpsertResourceNode keeps the graph's Resource projection node in
	// sync with the Resource Store (spec §4.3: the graph is not an
	// independent source of truth).
	UpsertResourceNode(ctx context.Context, resource *domain.Resource) error

	// DeleteResourceNode removes a Resource projection node and all of
	// its edges.
	DeleteResourceNode(ctx context.Context, id uuid.UUID) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
