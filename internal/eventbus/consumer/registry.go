package consumer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
)

// TypedHandler processes one decoded event payload of type T alongside its
// sibling Metadata (spec §4.8 step 5).
type TypedHandler[T any] func(ctx context.Context, payload T, meta envelope.Metadata) error

// rawHandler is the type-erased form stored in the registry; it decodes
// envelope.Event.Data into the concrete payload type a TypedHandler expects.
type rawHandler func(ctx context.Context, data json.RawMessage, meta envelope.Metadata) error

// Registry maps event type names to handlers. Registration is write-once
// per event type name (spec §4.8: "Register<Event, Handler>() fails if
// already registered"); lookups are O(1).
type Registry struct {
	handlers sync.Map // eventType string -> rawHandler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates eventType with handler. It returns domain.ErrConflict
// if eventType is already registered.
func Register[T any](r *Registry, eventType string, handler TypedHandler[T]) error {
	wrapped := rawHandler(func(ctx context.Context, data json.RawMessage, meta envelope.Metadata) error {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return domain.Invalidf("decode payload for event type %s: %w", eventType, err)
		}

		return handler(ctx, payload, meta)
	})

	if _, loaded := r.handlers.LoadOrStore(eventType, wrapped); loaded {
		return domain.Conflictf("handler already registered for event type %s", eventType)
	}

	return nil
}

// lookup returns the handler registered for eventType, if any.
func (r *Registry) lookup(eventType string) (rawHandler, bool) {
	value, ok := r.handlers.Load(eventType)
	if !ok {
		return nil, false
	}

	return value.(rawHandler), true
}
