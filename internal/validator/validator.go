package validator

import (
	"encoding/json"
	"fmt"

	playgroundvalidator "github.com/go-playground/validator/v10"

	"github.com/correlator-io/catalog/internal/domain"
)

// Result is the outcome of Validate/ValidateUpdate (spec §4.2).
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// patternCheck carries the fields go-playground/validator checks via
// registered custom tags, grounded on jordigilh-kubernaut's dependency
// on go-playground/validator/v10 for struct-tag validation.
type patternCheck struct {
	Name      string `validate:"required,resourcename"`
	Namespace string `validate:"omitempty,resourcenamespace"`
}

var structValidator = newStructValidator()

func newStructValidator() *playgroundvalidator.Validate {
	v := playgroundvalidator.New()

	_ = v.RegisterValidation("resourcename", func(fl playgroundvalidator.FieldLevel) bool {
		return domain.NamePattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("resourcenamespace", func(fl playgroundvalidator.FieldLevel) bool {
		return domain.NamespacePattern.MatchString(fl.Field().String())
	})

	return v
}

// Validator validates catalog Resources against the per-type rule table
// (spec §4.2).
type Validator struct{}

// New constructs a Validator. It is stateless; the rule table is
// package-level.
func New() *Validator {
	return &Validator{}
}

// Validate checks resource against its type's rule and the shared name/
// namespace/version/tag invariants, producing {isValid, errors[],
// warnings[]}.
func (v *Validator) Validate(resource *domain.Resource) *Result {
	result := &Result{IsValid: true}

	if !domain.IsKnownResourceType(resource.Type) || resource.Type == domain.ResourceTypeUnknown {
		result.addError("unknown resource type %q", resource.Type)

		return result
	}

	if err := structValidator.Struct(patternCheck{Name: resource.Name, Namespace: resource.Namespace}); err != nil {
		for _, fieldErr := range err.(playgroundvalidator.ValidationErrors) {
			switch fieldErr.Field() {
			case "Name":
				result.addError("name %q violates the required name pattern", resource.Name)
			case "Namespace":
				result.addError("namespace %q violates the required namespace pattern", resource.Namespace)
			}
		}
	}

	if resource.Version != "" && !domain.ValidSemVer(resource.Version) {
		result.addError("version %q violates the required MAJOR.MINOR.PATCH pattern", resource.Version)
	}

	if _, err := json.Marshal(resource.Metadata); err != nil {
		result.addError("metadata is not JSON-serialisable: %v", err)
	}

	rule, ok := RuleFor(resource.Type)
	if !ok {
		result.addError("unknown resource type %q", resource.Type)

		return result
	}

	validateProperties(result, rule, resource.Properties)
	validateMetadataKeys(result, rule, resource.Metadata)
	validateTags(result, resource.Tags)

	return result
}

func validateProperties(result *Result, rule Rule, properties map[string]string) {
	known := make(map[string]bool, len(rule.RequiredProperties)+len(rule.OptionalProperties))

	for _, key := range rule.RequiredProperties {
		known[key] = true

		value, present := properties[key]
		if !present {
			result.addError("missing required property %q", key)

			continue
		}

		if value == "" {
			result.addError("required property %q is empty", key)
		}
	}

	for _, key := range rule.OptionalProperties {
		known[key] = true
	}

	for key := range properties {
		if !known[key] {
			result.addWarning("unknown optional property %q", key)
		}
	}
}

func validateMetadataKeys(result *Result, rule Rule, metadata map[string]any) {
	for _, key := range rule.RequiredMetadata {
		if _, present := metadata[key]; !present {
			result.addError("missing required metadata key %q", key)
		}
	}
}

func validateTags(result *Result, tags []string) {
	seen := make(map[string]bool, len(tags))

	for _, tag := range tags {
		if seen[tag] {
			result.addWarning("duplicate tag %q", tag)

			continue
		}

		seen[tag] = true
	}
}

// ValidateUpdate validates updated and additionally errors on any
// attempted change to immutable fields (id, type, createdAt, createdBy).
func (v *Validator) ValidateUpdate(existing, updated *domain.Resource) *Result {
	result := v.Validate(updated)

	if existing == nil {
		return result
	}

	if updated.ID != existing.ID {
		result.addError("id is immutable")
	}

	if updated.Type != existing.Type {
		result.addError("type is immutable")
	}

	if !updated.CreatedAt.Equal(existing.CreatedAt) {
		result.addError("createdAt is immutable")
	}

	if updated.CreatedBy != existing.CreatedBy {
		result.addError("createdBy is immutable")
	}

	return result
}
