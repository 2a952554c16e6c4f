package schemaregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFirstSightRegisters(t *testing.T) {
	r := NewRegistry()

	err := r.Check(context.Background(), "ResourceCreated", "1.0.0")
	require.NoError(t, err)
}

func TestRegistrySameVersionPasses(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Check(context.Background(), "ResourceCreated", "1.0.0"))

	err := r.Check(context.Background(), "ResourceCreated", "1.0.0")
	require.NoError(t, err)
}

func TestRegistryDifferentVersionRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Check(context.Background(), "ResourceCreated", "1.0.0"))

	err := r.Check(context.Background(), "ResourceCreated", "2.0.0")
	require.Error(t, err)
}

func TestRegistryIndependentEventTypes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Check(context.Background(), "ResourceCreated", "1.0.0"))
	require.NoError(t, r.Check(context.Background(), "ResourceUpdated", "2.0.0"))
}

func TestNoopCheckerAlwaysSucceeds(t *testing.T) {
	var c NoopChecker

	assert.NoError(t, c.Check(context.Background(), "anything", "anything"))
}
