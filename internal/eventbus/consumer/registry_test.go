package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
)

type resourceCreatedPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	var received resourceCreatedPayload

	err := Register(registry, "ResourceCreated", func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error {
		received = payload

		return nil
	})
	require.NoError(t, err)

	handler, ok := registry.lookup("ResourceCreated")
	require.True(t, ok)

	err = handler(context.Background(), []byte(`{"id":"r1","name":"orders"}`), envelope.Metadata{})
	require.NoError(t, err)
	assert.Equal(t, resourceCreatedPayload{ID: "r1", Name: "orders"}, received)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	registry := NewRegistry()

	noop := func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error { return nil }

	require.NoError(t, Register(registry, "ResourceCreated", noop))

	err := Register(registry, "ResourceCreated", noop)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.lookup("Unregistered")
	assert.False(t, ok)
}

func TestHandlerDecodeFailureIsInvalid(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, Register(registry, "ResourceCreated",
		func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error { return nil }))

	handler, ok := registry.lookup("ResourceCreated")
	require.True(t, ok)

	err := handler(context.Background(), []byte("not json"), envelope.Metadata{})
	require.Error(t, err)
	assert.True(t, domain.IsInvalid(err))
}
