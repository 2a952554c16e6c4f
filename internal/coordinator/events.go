package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/correlator-io/catalog/internal/domain"
)

// Event type names for the catalog events the coordinator emits (spec
// §6: "Emitted catalog events").
const (
	EventResourceCreated     = "ResourceCreated"
	EventResourceUpdated     = "ResourceUpdated"
	EventResourceDeleted     = "ResourceDeleted"
	EventRelationshipCreated = "RelationshipCreated"
	EventRelationshipDeleted = "RelationshipDeleted"
)

// Publisher is the coordinator's view of the Event Producer (spec §4.7):
// wrap data in an envelope, publish to topic, and return the envelope's
// event id. The coordinator depends on this interface, not
// eventbus/producer directly, so it can be exercised with a fake in
// tests — the same dependency-inversion pattern as Store.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, data any, partitionKey string) (uuid.UUID, error)
}

// ResourceEvent is the payload for ResourceCreated/ResourceUpdated/
// ResourceDeleted: the identifying tuple (spec §6).
type ResourceEvent struct {
	ID        uuid.UUID           `json:"id"`
	Type      domain.ResourceType `json:"type"`
	Name      string              `json:"name"`
	Namespace string              `json:"namespace"`
}

// RelationshipEvent is the payload for RelationshipCreated/
// RelationshipDeleted: the identifying tuple (spec §6).
type RelationshipEvent struct {
	ID       uuid.UUID               `json:"id"`
	SourceID uuid.UUID               `json:"sourceId"`
	TargetID uuid.UUID               `json:"targetId"`
	Type     domain.RelationshipType `json:"type"`
}

func resourceEvent(r *domain.Resource) ResourceEvent {
	return ResourceEvent{ID: r.ID, Type: r.Type, Name: r.Name, Namespace: r.Namespace}
}

func relationshipEvent(r *domain.Relationship) RelationshipEvent {
	return RelationshipEvent{ID: r.ID, SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type}
}
