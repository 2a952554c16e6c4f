package envelope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func TestCreateStampsDefaults(t *testing.T) {
	data := testPayload{ID: uuid.New(), Name: "checkout-api"}

	e, err := Create(data, "ResourceCreated", "catalog-coordinator")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, e.Event.ID)
	assert.Equal(t, "ResourceCreated", e.Event.Type)
	assert.Equal(t, "catalog-coordinator", e.Event.Source)
	assert.Equal(t, SpecVersion, e.Event.SpecVersion)
	assert.Equal(t, DataContentType, e.Event.DataContentType)
	assert.False(t, e.Event.Time.IsZero())

	assert.NotEqual(t, uuid.Nil, e.Metadata.CorrelationID)
	assert.Equal(t, DefaultMaxRetries, e.Metadata.MaxRetries)
	assert.Equal(t, DefaultPriority, e.Metadata.Priority)
	assert.False(t, e.Metadata.PublishedAt.IsZero())

	assert.Equal(t, DefaultSchemaVersion, e.SchemaVersion)
}

func TestCreateAppliesOptions(t *testing.T) {
	correlationID := uuid.New()
	causationID := uuid.New()

	e, err := Create(testPayload{Name: "x"}, "ResourceUpdated", "catalog-coordinator",
		WithSubject("resource/123"),
		WithCorrelationID(correlationID),
		WithCausationID(causationID),
		WithPartitionKey("custom-key"),
		WithTenantID("tenant-a"),
		WithUserID("user-b"),
		WithPriority(9),
		WithHeaders(map[string]string{"x-extra": "1"}),
	)
	require.NoError(t, err)

	assert.Equal(t, "resource/123", e.Event.Subject)
	assert.Equal(t, correlationID, e.Metadata.CorrelationID)
	assert.Equal(t, causationID, e.Metadata.CausationID)
	assert.Equal(t, "custom-key", e.Metadata.PartitionKey)
	assert.Equal(t, "tenant-a", e.Metadata.TenantID)
	assert.Equal(t, "user-b", e.Metadata.UserID)
	assert.Equal(t, 9, e.Metadata.Priority)
	assert.Equal(t, "1", e.Metadata.Headers["x-extra"])
}

func TestSerialiseDeserialiseRoundTrip(t *testing.T) {
	original, err := Create(testPayload{ID: uuid.New(), Name: "orders"}, "ResourceCreated", "catalog-coordinator",
		WithTenantID("tenant-a"))
	require.NoError(t, err)

	wire, err := Serialise(original)
	require.NoError(t, err)

	roundTripped, err := Deserialise(wire)
	require.NoError(t, err)

	assert.Equal(t, original.Event.ID, roundTripped.Event.ID)
	assert.Equal(t, original.Event.Type, roundTripped.Event.Type)
	assert.Equal(t, original.Event.Source, roundTripped.Event.Source)
	assert.Equal(t, original.Event.SpecVersion, roundTripped.Event.SpecVersion)
	assert.JSONEq(t, string(original.Event.Data), string(roundTripped.Event.Data))
	assert.Equal(t, original.Metadata.CorrelationID, roundTripped.Metadata.CorrelationID)
	assert.Equal(t, original.Metadata.TenantID, roundTripped.Metadata.TenantID)
	assert.Equal(t, original.SchemaVersion, roundTripped.SchemaVersion)
	assert.WithinDuration(t, original.Event.Time, roundTripped.Event.Time, 0)
}

func TestDeserialiseInvalidJSON(t *testing.T) {
	_, err := Deserialise([]byte("not json"))
	require.Error(t, err)
}
