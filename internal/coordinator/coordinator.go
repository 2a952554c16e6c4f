package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/graphstore"
	"github.com/correlator-io/catalog/internal/resourcestore"
	"github.com/correlator-io/catalog/internal/searchindex"
	"github.com/correlator-io/catalog/internal/telemetry"
	"github.com/correlator-io/catalog/internal/validator"
)

// compensation is one undo step on the LIFO rollback stack (spec §4.5,
// §9 "Cross-store saga"). Grounded on internal/ingestion/store.go's
// partial-success philosophy, generalized from per-item error capture
// into an explicit forward/undo pairing.
type compensation func(ctx context.Context)

// Coordinator is the catalog's central write-path component. It is
// stateless across calls: every exported method is its own mini-saga
// (spec §4.5 "State model").
type Coordinator struct {
	resources resourcestore.Store
	graph     graphstore.Store
	search    searchindex.Store
	publisher Publisher
	validator *validator.Validator
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	cfg             *Config
	resourceBreaker *gobreaker.CircuitBreaker
	graphBreaker    *gobreaker.CircuitBreaker
	searchBreaker   *gobreaker.CircuitBreaker
}

// New constructs a Coordinator over its three store dependencies and a
// Publisher, wrapping each store in its own circuit breaker (spec §4.5
// [NEW]). metrics may be nil, in which case operation counts/latency go
// unrecorded.
func New(
	resources resourcestore.Store,
	graph graphstore.Store,
	search searchindex.Store,
	publisher Publisher,
	cfg *Config,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		resources:       resources,
		graph:           graph,
		search:          search,
		publisher:       publisher,
		validator:       validator.New(),
		metrics:         metrics,
		logger:          logger,
		cfg:             cfg,
		resourceBreaker: newBreaker("resource-store", cfg),
		graphBreaker:    newBreaker("graph-store", cfg),
		searchBreaker:   newBreaker("search-index", cfg),
	}
}

// recordOp is a no-op when no Metrics was wired in.
func (c *Coordinator) recordOp(operation, status string, start time.Time) {
	if c.metrics == nil {
		return
	}

	c.metrics.RecordCoordinatorOp(operation, status, time.Since(start))
}

// runCompensations unwinds stack in reverse (LIFO) order, logging each
// compensation failure but never propagating it (spec §4.5 step 5, §9).
func (c *Coordinator) runCompensations(ctx context.Context, stack []compensation) {
	for i := len(stack) - 1; i >= 0; i-- {
		stack[i](ctx)
	}
}

// publishBestEffort publishes an event and demotes any failure to a
// logged warning rather than failing the caller's operation (spec §4.5
// step 4, §7 propagation policy).
func (c *Coordinator) publishBestEffort(ctx context.Context, eventType string, data any, partitionKey string) {
	if c.publisher == nil {
		return
	}

	if _, err := c.publisher.Publish(ctx, c.cfg.EventsTopic, eventType, data, partitionKey); err != nil {
		c.logger.Warn("best-effort event publish failed",
			"eventType", eventType, "partitionKey", partitionKey, "error", err)
	}
}

// Register validates resource, creates it in the Resource Store, upserts
// its projection node in the Graph Store, indexes it in Search, and
// publishes ResourceCreated (spec §4.5). The graph and search steps each
// push their own compensation so a later failure unwinds all of them.
func (c *Coordinator) Register(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("register", status, start) }()

	result := c.validator.Validate(resource)
	for _, warning := range result.Warnings {
		c.logger.Warn("resource validation warning", "warning", warning)
	}

	if !result.IsValid {
		status = "error"

		return nil, domain.Invalidf("resource failed validation: %v", result.Errors)
	}

	var compensations []compensation

	created, err := executeBreaker(c.resourceBreaker, func() (*domain.Resource, error) {
		return c.resources.Create(ctx, resource)
	})
	if err != nil {
		status = "error"

		return nil, err
	}

	compensations = append(compensations, func(ctx context.Context) {
		if _, delErr := executeBreaker(c.resourceBreaker, func() (bool, error) {
			return c.resources.Delete(ctx, created.ID)
		}); delErr != nil {
			c.logger.Warn("compensation failed: delete from resource store", "id", created.ID, "error", delErr)
		}
	})

	if _, err := executeBreaker(c.graphBreaker, func() (struct{}, error) {
		return struct{}{}, c.graph.UpsertResourceNode(ctx, created)
	}); err != nil {
		c.runCompensations(ctx, compensations)

		status = "error"

		return nil, err
	}

	compensations = append(compensations, func(ctx context.Context) {
		if _, delErr := executeBreaker(c.graphBreaker, func() (struct{}, error) {
			return struct{}{}, c.graph.DeleteResourceNode(ctx, created.ID)
		}); delErr != nil {
			c.logger.Warn("compensation failed: delete graph projection node", "id", created.ID, "error", delErr)
		}
	})

	if _, err := executeBreaker(c.searchBreaker, func() (struct{}, error) {
		return struct{}{}, c.search.Index(ctx, created)
	}); err != nil {
		c.runCompensations(ctx, compensations)

		status = "error"

		return nil, err
	}

	compensations = append(compensations, func(ctx context.Context) {
		if _, delErr := executeBreaker(c.searchBreaker, func() (struct{}, error) {
			return struct{}{}, c.search.Delete(ctx, created.ID)
		}); delErr != nil {
			c.logger.Warn("compensation failed: delete from search index", "id", created.ID, "error", delErr)
		}
	})

	c.publishBestEffort(ctx, EventResourceCreated, resourceEvent(created), created.ID.String())

	return created, nil
}

// Update fetches the existing resource, validates the transition,
// rewrites it, best-effort reindexes the graph projection node and
// Search, and publishes ResourceUpdated (spec §4.5).
func (c *Coordinator) Update(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("update", status, start) }()

	existing, err := executeBreaker(c.resourceBreaker, func() (*domain.Resource, error) {
		return c.resources.Get(ctx, resource.ID)
	})
	if err != nil {
		status = "error"

		return nil, err
	}

	result := c.validator.ValidateUpdate(existing, resource)
	for _, warning := range result.Warnings {
		c.logger.Warn("resource validation warning", "warning", warning)
	}

	if !result.IsValid {
		status = "error"

		return nil, domain.Invalidf("resource update failed validation: %v", result.Errors)
	}

	updated, err := executeBreaker(c.resourceBreaker, func() (*domain.Resource, error) {
		return c.resources.Update(ctx, resource)
	})
	if err != nil {
		status = "error"

		return nil, err
	}

	if _, err := executeBreaker(c.graphBreaker, func() (struct{}, error) {
		return struct{}{}, c.graph.UpsertResourceNode(ctx, updated)
	}); err != nil {
		c.logger.Warn("graph projection reindex failed, node now stale", "id", updated.ID, "error", err)
	}

	if _, err := executeBreaker(c.searchBreaker, func() (struct{}, error) {
		return struct{}{}, c.search.Index(ctx, updated)
	}); err != nil {
		c.logger.Warn("search reindex failed, index now stale", "id", updated.ID, "error", err)
	}

	c.publishBestEffort(ctx, EventResourceUpdated, resourceEvent(updated), updated.ID.String())

	return updated, nil
}

// Delete fetches resource for the eventual event payload, deletes it
// from the Resource Store, best-effort deletes it from Search and the
// graph projection node, and publishes ResourceDeleted iff the resource
// existed (spec §4.5).
func (c *Coordinator) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("delete", status, start) }()

	existing, err := executeBreaker(c.resourceBreaker, func() (*domain.Resource, error) {
		return c.resources.Get(ctx, id)
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}

		status = "error"

		return false, err
	}

	deleted, err := executeBreaker(c.resourceBreaker, func() (bool, error) {
		return c.resources.Delete(ctx, id)
	})
	if err != nil {
		status = "error"

		return false, err
	}

	if !deleted {
		return false, nil
	}

	if _, err := executeBreaker(c.searchBreaker, func() (struct{}, error) {
		return struct{}{}, c.search.Delete(ctx, id)
	}); err != nil {
		c.logger.Warn("search delete failed, index now stale", "id", id, "error", err)
	}

	if _, err := executeBreaker(c.graphBreaker, func() (struct{}, error) {
		return struct{}{}, c.graph.DeleteResourceNode(ctx, id)
	}); err != nil {
		c.logger.Warn("graph projection node delete failed, node now stale", "id", id, "error", err)
	}

	c.publishBestEffort(ctx, EventResourceDeleted, resourceEvent(existing), id.String())

	return true, nil
}

// CreateRelationship rejects self-loops, checks acyclicity for
// relationship types that require it, creates the edge, and publishes
// RelationshipCreated (spec §4.5, §3 "source ≠ target").
func (c *Coordinator) CreateRelationship(
	ctx context.Context,
	relationship *domain.Relationship,
) (*domain.Relationship, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("create_relationship", status, start) }()

	if relationship.SourceID == relationship.TargetID {
		status = "error"

		return nil, domain.Invalidf("relationship source and target must not be the same resource")
	}

	if domain.RequiresCycleCheck(relationship.Type) {
		hasCycle, err := executeBreaker(c.graphBreaker, func() (bool, error) {
			return c.graph.HasCycle(ctx, relationship.SourceID, relationship.TargetID, relationship.Type)
		})
		if err != nil {
			status = "error"

			return nil, err
		}

		if hasCycle {
			status = "error"

			return nil, domain.Invalidf("would introduce cycle")
		}
	}

	created, err := executeBreaker(c.graphBreaker, func() (*domain.Relationship, error) {
		return c.graph.Create(ctx, relationship)
	})
	if err != nil {
		status = "error"

		return nil, err
	}

	c.publishBestEffort(ctx, EventRelationshipCreated, relationshipEvent(created), created.ID.String())

	return created, nil
}

// DeleteRelationship fetches relationship for the eventual event
// payload, deletes it, and publishes RelationshipDeleted iff deletion
// returned true (spec §4.5).
func (c *Coordinator) DeleteRelationship(ctx context.Context, id uuid.UUID) (bool, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("delete_relationship", status, start) }()

	existing, err := executeBreaker(c.graphBreaker, func() (*domain.Relationship, error) {
		return c.graph.Get(ctx, id)
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}

		status = "error"

		return false, err
	}

	deleted, err := executeBreaker(c.graphBreaker, func() (bool, error) {
		return c.graph.Delete(ctx, id)
	})
	if err != nil {
		status = "error"

		return false, err
	}

	if !deleted {
		return false, nil
	}

	c.publishBestEffort(ctx, EventRelationshipDeleted, relationshipEvent(existing), id.String())

	return true, nil
}

// ResynchroniseSearchIndex pages the Resource Store in
// cfg.ReindexPageSize chunks and reindexes the full set, returning the
// total resource count (spec §4.5).
func (c *Coordinator) ResynchroniseSearchIndex(ctx context.Context) (int, error) {
	start := time.Now()
	status := "success"
	defer func() { c.recordOp("resynchronise_search_index", status, start) }()

	var all []*domain.Resource

	pageNumber := 1

	for {
		page, err := executeBreaker(c.resourceBreaker, func() (*resourcestore.Page, error) {
			return c.resources.Page(ctx, c.cfg.ReindexPageSize, pageNumber)
		})
		if err != nil {
			status = "error"

			return 0, err
		}

		all = append(all, page.Resources...)

		if len(all) >= page.TotalCount || len(page.Resources) == 0 {
			break
		}

		pageNumber++
	}

	if _, err := executeBreaker(c.searchBreaker, func() (struct{}, error) {
		return struct{}{}, c.search.ReindexAll(ctx, all)
	}); err != nil {
		status = "error"

		return 0, err
	}

	return len(all), nil
}
