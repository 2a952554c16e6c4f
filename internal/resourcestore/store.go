package resourcestore

import (
	"context"

	"github.com/google/uuid"

	"github.com/correlator-io/catalog/internal/domain"
)

// Page is a stable-order page of Resources, ordered by created_at, id
// (spec §4.1).
type Page struct {
	Resources  []*domain.Resource
	TotalCount int
	PageNumber int
	PageSize   int
}

// Store defines the interface for Resource persistence (spec §4.1). The
// Catalog Coordinator depends on this interface, not a concrete
// implementation, following the dependency-inversion pattern the teacher
// uses for ingestion.Store / storage.APIKeyStore.
type Store interface {
	// Get retrieves a Resource by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// GetByName retrieves a Resource by its (type, name, namespace) key.
	// Returns domain.ErrNotFound if absent.
	GetByName(ctx context.Context, resourceType domain.ResourceType, name, namespace string) (*domain.Resource, error)

	// ListByType returns all Resources of the given type.
	ListByType(ctx context.Context, resourceType domain.ResourceType) ([]*domain.Resource, error)

	// ListByNamespace returns all Resources in the given namespace.
	ListByNamespace(ctx context.Context, namespace string) ([]*domain.Resource, error)

	// ListByTags returns all Resources carrying any of the given tags
	// (any-of semantics). An empty tag list returns an empty result.
	ListByTags(ctx context.Context, tags []string) ([]*domain.Resource, error)

	// Create assigns an id if zero, stamps timestamps, and enforces
	// uniqueness. Returns domain.ErrConflict on a duplicate key.
	Create(ctx context.Context, resource *domain.Resource) (*domain.Resource, error)

	// Update looks up by id, rewrites mutable fields, bumps updatedAt, and
	// retains createdAt/createdBy. Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, resource *domain.Resource) (*domain.Resource, error)

	// Delete removes a Resource by id. Returns false if it did not exist.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Page returns a stable-order page of Resources ordered by createdAt.
	Page(ctx context.Context, pageSize, pageNumber int) (*Page, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
