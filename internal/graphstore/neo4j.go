package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/correlator-io/catalog/internal/domain"
)

// relationshipLabels maps a domain.RelationshipType to the Neo4j
// relationship label used for it, one label per type as SPEC_FULL §4.3
// describes.
var relationshipLabels = map[domain.RelationshipType]string{
	domain.RelationshipDependsOn:   "DEPENDS_ON",
	domain.RelationshipProduces:    "PRODUCES",
	domain.RelationshipConsumes:    "CONSUMES",
	domain.RelationshipContains:    "CONTAINS",
	domain.RelationshipTrainedWith: "TRAINED_WITH",
	domain.RelationshipHasAccess:   "HAS_ACCESS",
	domain.RelationshipDerivesFrom: "DERIVES_FROM",
	domain.RelationshipReferences:  "REFERENCES",
	domain.RelationshipExtends:     "EXTENDS",
}

var labelToRelationshipType = func() map[string]domain.RelationshipType {
	m := make(map[string]domain.RelationshipType, len(relationshipLabels))
	for t, label := range relationshipLabels {
		m[label] = t
	}

	return m
}()

func labelFor(t domain.RelationshipType) (string, error) {
	label, ok := relationshipLabels[t]
	if !ok {
		return "", domain.Invalidf("unknown relationship type %q", t)
	}

	return label, nil
}

// Neo4jStore implements Store against Neo4j. Grounded on
// evalgo-org-eve/db/repository.Neo4jRepository: one session per call,
// ExecuteRead/ExecuteWrite, Cypher path expressions for traversal and
// cycle detection.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(cfg *Config) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph store connection health check failed: %w", err)
	}

	return &Neo4jStore{
		driver: driver,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}, nil
}

const ctxTimeout = 5 * time.Second

func (s *Neo4jStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

func (s *Neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

// HealthCheck verifies the Neo4j driver can reach the cluster.
func (s *Neo4jStore) HealthCheck(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close closes the underlying driver.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

// UpsertResourceNode keeps the graph's Resource projection in sync with
// the Resource Store.
func (s *Neo4jStore) UpsertResourceNode(ctx context.Context, resource *domain.Resource) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (r:Resource {id: $id})
			SET r.type = $type, r.name = $name, r.namespace = $namespace, r.version = $version,
				r.createdAt = $createdAt, r.updatedAt = $updatedAt, r.active = $active
		`, map[string]any{
			"id":        resource.ID.String(),
			"type":      string(resource.Type),
			"name":      resource.Name,
			"namespace": resource.Namespace,
			"version":   resource.Version,
			"createdAt": resource.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updatedAt": resource.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"active":    resource.Active,
		})

		return nil, err
	})

	return err
}

// DeleteResourceNode removes a Resource projection node and all of its
// edges.
func (s *Neo4jStore) DeleteResourceNode(ctx context.Context, id uuid.UUID) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `MATCH (r:Resource {id: $id}) DETACH DELETE r`, map[string]any{"id": id.String()})

		return nil, err
	})

	return err
}

// Create persists a new edge between two Resource nodes.
func (s *Neo4jStore) Create(ctx context.Context, relationship *domain.Relationship) (*domain.Relationship, error) {
	label, err := labelFor(relationship.Type)
	if err != nil {
		return nil, err
	}

	toInsert := *relationship
	if toInsert.ID == uuid.Nil {
		toInsert.ID = uuid.New()
	}

	toInsert.CreatedAt = time.Now().UTC()

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (src:Resource {id: $sourceId}), (dst:Resource {id: $targetId})
		MERGE (src)-[rel:%s {id: $id}]->(dst)
		SET rel.bidirectional = $bidirectional, rel.dependencySubType = $dependencySubType,
			rel.required = $required, rel.versionConstraint = $versionConstraint,
			rel.transformationType = $transformationType, rel.transformationLogic = $transformationLogic,
			rel.createdAt = $createdAt, rel.createdBy = $createdBy
	`, label)

	created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"id":                  toInsert.ID.String(),
			"sourceId":            toInsert.SourceID.String(),
			"targetId":            toInsert.TargetID.String(),
			"bidirectional":       toInsert.Bidirectional,
			"dependencySubType":   toInsert.DependencySubType,
			"required":            toInsert.Required,
			"versionConstraint":   toInsert.VersionConstraint,
			"transformationType":  toInsert.TransformationType,
			"transformationLogic": toInsert.TransformationLogic,
			"createdAt":           toInsert.CreatedAt.Format(time.RFC3339Nano),
			"createdBy":           toInsert.CreatedBy,
		})
		if err != nil {
			return false, err
		}

		summary, err := result.Consume(ctx)
		if err != nil {
			return false, err
		}

		return summary.Counters().RelationshipsCreated() > 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	if !created.(bool) {
		return nil, domain.NotFoundf("source or target resource for relationship %s->%s", toInsert.SourceID, toInsert.TargetID)
	}

	return &toInsert, nil
}

// Get retrieves a Relationship by id.
func (s *Neo4jStore) Get(ctx context.Context, id uuid.UUID) (*domain.Relationship, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (src:Resource)-[rel {id: $id}]->(dst:Resource)
			RETURN src.id as sourceId, dst.id as targetId, type(rel) as relType, rel as rel
		`, map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}

		if records.Next(ctx) {
			return recordToRelationship(records.Record())
		}

		return nil, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get relationship %s: %w", id, err)
	}

	if result == nil {
		return nil, domain.NotFoundf("relationship %s", id)
	}

	return result.(*domain.Relationship), nil
}

// Delete removes a Relationship by id.
func (s *Neo4jStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH ()-[rel {id: $id}]->()
			DELETE rel
			RETURN count(rel) as deleted
		`, map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}

		if records.Next(ctx) {
			deleted, _ := records.Record().Get("deleted")

			count, ok := deleted.(int64)

			return ok && count > 0, nil
		}

		return false, records.Err()
	})
	if err != nil {
		return false, fmt.Errorf("delete relationship %s: %w", id, err)
	}

	return result.(bool), nil
}

// GetBySource returns every Relationship originating at sourceID.
func (s *Neo4jStore) GetBySource(ctx context.Context, sourceID uuid.UUID) ([]*domain.Relationship, error) {
	return s.queryRelationships(ctx, `
		MATCH (src:Resource {id: $id})-[rel]->(dst:Resource)
		RETURN src.id as sourceId, dst.id as targetId, type(rel) as relType, rel as rel
	`, map[string]any{"id": sourceID.String()})
}

// GetByTarget returns every Relationship terminating at targetID.
func (s *Neo4jStore) GetByTarget(ctx context.Context, targetID uuid.UUID) ([]*domain.Relationship, error) {
	return s.queryRelationships(ctx, `
		MATCH (src:Resource)-[rel]->(dst:Resource {id: $id})
		RETURN src.id as sourceId, dst.id as targetId, type(rel) as relType, rel as rel
	`, map[string]any{"id": targetID.String()})
}

// GetByType returns every Relationship of the given type.
func (s *Neo4jStore) GetByType(ctx context.Context, relationshipType domain.RelationshipType) ([]*domain.Relationship, error) {
	label, err := labelFor(relationshipType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		MATCH (src:Resource)-[rel:%s]->(dst:Resource)
		RETURN src.id as sourceId, dst.id as targetId, type(rel) as relType, rel as rel
	`, label)

	return s.queryRelationships(ctx, query, nil)
}

// GetBetween returns every Relationship directly connecting source and
// target, regardless of type.
func (s *Neo4jStore) GetBetween(ctx context.Context, sourceID, targetID uuid.UUID) ([]*domain.Relationship, error) {
	return s.queryRelationships(ctx, `
		MATCH (src:Resource {id: $sourceId})-[rel]->(dst:Resource {id: $targetId})
		RETURN src.id as sourceId, dst.id as targetId, type(rel) as relType, rel as rel
	`, map[string]any{"sourceId": sourceID.String(), "targetId": targetID.String()})
}

func (s *Neo4jStore) queryRelationships(ctx context.Context, query string, params map[string]any) ([]*domain.Relationship, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		relationships := make([]*domain.Relationship, 0)

		for records.Next(ctx) {
			relationship, err := recordToRelationship(records.Record())
			if err != nil {
				return nil, err
			}

			relationships = append(relationships, relationship)
		}

		return relationships, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}

	return result.([]*domain.Relationship), nil
}

func recordToRelationship(record *neo4j.Record) (*domain.Relationship, error) {
	sourceRaw, _ := record.Get("sourceId")
	targetRaw, _ := record.Get("targetId")
	relTypeRaw, _ := record.Get("relType")
	relRaw, _ := record.Get("rel")

	rel, ok := relRaw.(neo4j.Relationship)
	if !ok {
		return nil, domain.Internalf("unexpected relationship projection from graph store")
	}

	sourceID, err := uuid.Parse(sourceRaw.(string))
	if err != nil {
		return nil, fmt.Errorf("parse source id: %w", err)
	}

	targetID, err := uuid.Parse(targetRaw.(string))
	if err != nil {
		return nil, fmt.Errorf("parse target id: %w", err)
	}

	id, err := uuid.Parse(propString(rel.Props, "id"))
	if err != nil {
		return nil, fmt.Errorf("parse relationship id: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, propString(rel.Props, "createdAt"))

	return &domain.Relationship{
		ID:                  id,
		Type:                labelToRelationshipType[relTypeRaw.(string)],
		SourceID:            sourceID,
		TargetID:            targetID,
		Bidirectional:       propBool(rel.Props, "bidirectional"),
		DependencySubType:   propString(rel.Props, "dependencySubType"),
		Required:            propBool(rel.Props, "required"),
		VersionConstraint:   propString(rel.Props, "versionConstraint"),
		TransformationType:  propString(rel.Props, "transformationType"),
		TransformationLogic: propString(rel.Props, "transformationLogic"),
		CreatedAt:           createdAt,
		CreatedBy:           propString(rel.Props, "createdBy"),
	}, nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}

	return ""
}

func propBool(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}

	return false
}

// Dependencies returns the Resources reachable from id via outward
// DependsOn edges, bounded to depth.
func (s *Neo4jStore) Dependencies(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error) {
	if depth < 1 || depth > MaxDependencyDepth {
		return nil, domain.Invalidf("dependency depth must be between 1 and %d, got %d", MaxDependencyDepth, depth)
	}

	query := fmt.Sprintf(`
		MATCH (a:Resource {id: $id})-[:DEPENDS_ON*1..%d]->(dep:Resource)
		RETURN DISTINCT dep as node
	`, depth)

	return s.queryResourceNodes(ctx, query, map[string]any{"id": id.String()})
}

// Dependents returns the Resources that reach id via DependsOn edges,
// bounded to depth.
func (s *Neo4jStore) Dependents(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error) {
	if depth < 1 || depth > MaxDependencyDepth {
		return nil, domain.Invalidf("dependency depth must be between 1 and %d, got %d", MaxDependencyDepth, depth)
	}

	query := fmt.Sprintf(`
		MATCH (dependent:Resource)-[:DEPENDS_ON*1..%d]->(a:Resource {id: $id})
		RETURN DISTINCT dependent as node
	`, depth)

	return s.queryResourceNodes(ctx, query, map[string]any{"id": id.String()})
}

// LineageUpstream returns the Resources that Produces/DerivesFrom trace
// back to, bounded to depth.
func (s *Neo4jStore) LineageUpstream(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error) {
	if depth < 1 || depth > MaxLineageDepth {
		return nil, domain.Invalidf("lineage depth must be between 1 and %d, got %d", MaxLineageDepth, depth)
	}

	query := fmt.Sprintf(`
		MATCH (a:Resource {id: $id})<-[:PRODUCES|DERIVES_FROM*1..%d]-(upstream:Resource)
		RETURN DISTINCT upstream as node
	`, depth)

	return s.queryResourceNodes(ctx, query, map[string]any{"id": id.String()})
}

// LineageDownstream returns the Resources derived/produced from id,
// bounded to depth.
func (s *Neo4jStore) LineageDownstream(ctx context.Context, id uuid.UUID, depth int) ([]*domain.Resource, error) {
	if depth < 1 || depth > MaxLineageDepth {
		return nil, domain.Invalidf("lineage depth must be between 1 and %d, got %d", MaxLineageDepth, depth)
	}

	query := fmt.Sprintf(`
		MATCH (a:Resource {id: $id})-[:PRODUCES|DERIVES_FROM*1..%d]->(downstream:Resource)
		RETURN DISTINCT downstream as node
	`, depth)

	return s.queryResourceNodes(ctx, query, map[string]any{"id": id.String()})
}

func (s *Neo4jStore) queryResourceNodes(ctx context.Context, query string, params map[string]any) ([]*domain.Resource, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		resources := make([]*domain.Resource, 0)

		for records.Next(ctx) {
			nodeRaw, _ := records.Record().Get("node")

			node, ok := nodeRaw.(neo4j.Node)
			if !ok {
				continue
			}

			resources = append(resources, nodeToResourceProjection(node))
		}

		return resources, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("traverse graph: %w", err)
	}

	return result.([]*domain.Resource), nil
}

// nodeToResourceProjection reconstructs a partial Resource from a graph
// node's cached properties (spec §4.3): id, type, name, namespace,
// version, timestamps, active flag. Tags/Metadata/Properties/CreatedBy
// are not cached in the graph and remain zero-valued — callers needing
// full fidelity read the Resource Store.
func nodeToResourceProjection(node neo4j.Node) *domain.Resource {
	id, _ := uuid.Parse(propString(node.Props, "id"))
	createdAt, _ := time.Parse(time.RFC3339Nano, propString(node.Props, "createdAt"))
	updatedAt, _ := time.Parse(time.RFC3339Nano, propString(node.Props, "updatedAt"))

	return &domain.Resource{
		ID:        id,
		Type:      domain.ResourceType(propString(node.Props, "type")),
		Name:      propString(node.Props, "name"),
		Namespace: propString(node.Props, "namespace"),
		Version:   propString(node.Props, "version"),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Active:    propBool(node.Props, "active"),
	}
}

// HasCycle reports whether adding source->target of relationshipType
// would introduce a cycle: true iff a directed path of the same type
// already exists from target back to source (bounded to MaxLineageDepth).
// Grounded on evalgo-org-eve/db/repository.Neo4jRepository.WouldCreateCycle.
func (s *Neo4jStore) HasCycle(
	ctx context.Context,
	source, target uuid.UUID,
	relationshipType domain.RelationshipType,
) (bool, error) {
	label, err := labelFor(relationshipType)
	if err != nil {
		return false, err
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH path = (dst:Resource {id: $targetId})-[:%s*1..%d]->(src:Resource {id: $sourceId})
		RETURN count(path) > 0 as hasCycle
	`, label, MaxLineageDepth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]any{
			"sourceId": source.String(),
			"targetId": target.String(),
		})
		if err != nil {
			return false, err
		}

		if records.Next(ctx) {
			hasCycle, _ := records.Record().Get("hasCycle")

			cycle, _ := hasCycle.(bool)

			return cycle, nil
		}

		return false, records.Err()
	})
	if err != nil {
		return false, fmt.Errorf("cycle check %s->%s: %w", source, target, err)
	}

	return result.(bool), nil
}
