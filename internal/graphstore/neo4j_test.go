package graphstore

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/domain"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name    string
		relType domain.RelationshipType
		want    string
		wantErr bool
	}{
		{name: "depends on", relType: domain.RelationshipDependsOn, want: "DEPENDS_ON"},
		{name: "produces", relType: domain.RelationshipProduces, want: "PRODUCES"},
		{name: "derives from", relType: domain.RelationshipDerivesFrom, want: "DERIVES_FROM"},
		{name: "unknown type rejected", relType: domain.RelationshipType("Bogus"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := labelFor(tt.relType)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalid)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelToRelationshipTypeRoundTrip(t *testing.T) {
	for relType, label := range relationshipLabels {
		assert.Equal(t, relType, labelToRelationshipType[label])
	}
}

func TestNodeToResourceProjection(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	node := neo4j.Node{
		Props: map[string]any{
			"id":        "4b1f7c2a-7f3b-4f8b-9f3a-1a2b3c4d5e6f",
			"type":      "Table",
			"name":      "orders",
			"namespace": "analytics",
			"version":   "1.0.0",
			"createdAt": now.Format(time.RFC3339Nano),
			"updatedAt": now.Format(time.RFC3339Nano),
			"active":    true,
		},
	}

	resource := nodeToResourceProjection(node)
	assert.Equal(t, domain.ResourceTypeTable, resource.Type)
	assert.Equal(t, "orders", resource.Name)
	assert.Equal(t, "analytics", resource.Namespace)
	assert.True(t, resource.Active)
	assert.True(t, resource.CreatedAt.Equal(now))
}

func TestPropStringAndPropBool(t *testing.T) {
	props := map[string]any{"name": "orders", "active": true, "count": int64(3)}

	assert.Equal(t, "orders", propString(props, "name"))
	assert.Equal(t, "", propString(props, "missing"))
	assert.True(t, propBool(props, "active"))
	assert.False(t, propBool(props, "missing"))
	assert.False(t, propBool(props, "count"))
}

func TestGraphStoreConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{URI: "neo4j://localhost:7687", Username: "neo4j", Password: "secret"}},
		{name: "empty uri rejected", cfg: Config{Username: "neo4j"}, wantErr: true},
		{name: "empty username rejected", cfg: Config{URI: "neo4j://localhost:7687"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}
