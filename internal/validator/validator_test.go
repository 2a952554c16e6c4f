package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/domain"
)

func validService() *domain.Resource {
	return &domain.Resource{
		ID:        uuid.New(),
		Type:      domain.ResourceTypeService,
		Name:      "checkout-api",
		Namespace: "payments",
		Version:   "1.2.3",
		Tags:      []string{"tier-1"},
		Properties: map[string]string{
			"endpoint": "https://checkout.internal/api",
			"protocol": "https",
		},
		Metadata: map[string]any{"description": "checkout service"},
	}
}

func TestValidateValidResource(t *testing.T) {
	v := New()
	result := v.Validate(validService())
	require.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateUnknownType(t *testing.T) {
	v := New()
	resource := validService()
	resource.Type = domain.ResourceTypeUnknown

	result := v.Validate(resource)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "unknown resource type")
}

func TestValidateMissingRequiredProperty(t *testing.T) {
	v := New()
	resource := validService()
	delete(resource.Properties, "protocol")

	result := v.Validate(resource)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, `missing required property "protocol"`)
}

func TestValidateEmptyRequiredProperty(t *testing.T) {
	v := New()
	resource := validService()
	resource.Properties["protocol"] = ""

	result := v.Validate(resource)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, `required property "protocol" is empty`)
}

func TestValidateMissingRequiredMetadata(t *testing.T) {
	v := New()
	resource := validService()
	resource.Metadata = map[string]any{}

	result := v.Validate(resource)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, `missing required metadata key "description"`)
}

func TestValidateNamePatternViolation(t *testing.T) {
	v := New()
	resource := validService()
	resource.Name = "_leading-underscore-not-allowed"

	result := v.Validate(resource)
	require.False(t, result.IsValid)
}

func TestValidateNamespacePatternViolation(t *testing.T) {
	v := New()
	resource := validService()
	resource.Namespace = "Has_Upper_Case"

	result := v.Validate(resource)
	require.False(t, result.IsValid)
}

func TestValidateVersionPatternViolation(t *testing.T) {
	v := New()
	resource := validService()
	resource.Version = "not-a-semver"

	result := v.Validate(resource)
	require.False(t, result.IsValid)
}

func TestValidateUnknownOptionalPropertyWarning(t *testing.T) {
	v := New()
	resource := validService()
	resource.Properties["undeclared_prop"] = "value"

	result := v.Validate(resource)
	require.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, `unknown optional property "undeclared_prop"`)
}

func TestValidateDuplicateTagsWarning(t *testing.T) {
	v := New()
	resource := validService()
	resource.Tags = []string{"tier-1", "tier-1"}

	result := v.Validate(resource)
	require.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, `duplicate tag "tier-1"`)
}

func TestValidateUpdateImmutableFieldViolations(t *testing.T) {
	v := New()
	existing := validService()
	existing.CreatedAt = time.Now().UTC()
	existing.CreatedBy = "pipeline-x"

	updated := *existing
	updated.Type = domain.ResourceTypeDatabase
	updated.ID = uuid.New()
	updated.CreatedAt = existing.CreatedAt.Add(time.Hour)
	updated.CreatedBy = "someone-else"
	updated.Properties = map[string]string{"connection_string": "x", "provider": "postgres"}
	updated.Metadata = map[string]any{"description": "d", "environment": "prod"}

	result := v.ValidateUpdate(existing, &updated)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "id is immutable")
	assert.Contains(t, result.Errors, "type is immutable")
	assert.Contains(t, result.Errors, "createdAt is immutable")
	assert.Contains(t, result.Errors, "createdBy is immutable")
}

func TestValidateUpdateAllowsMutableChanges(t *testing.T) {
	v := New()
	existing := validService()

	updated := *existing
	updated.Name = "checkout-api-v2"
	updated.Tags = []string{"tier-1", "renamed"}

	result := v.ValidateUpdate(existing, &updated)
	require.True(t, result.IsValid)
}
