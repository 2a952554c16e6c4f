// Package validator holds the catalog's per-resource-type schema rules
// and produces {isValid, errors[], warnings[]} validation results (spec
// §4.2).
package validator

import "github.com/correlator-io/catalog/internal/domain"

// Rule describes the property and metadata contract for one
// domain.ResourceType.
type Rule struct {
	RequiredProperties []string
	OptionalProperties []string
	RequiredMetadata   []string
}

// rules is the static Type → Rule table (spec §4.2). Service and
// Database are seeded verbatim from spec.md §4.2; the remaining types
// are representative additions for a complete catalog.
var rules = map[domain.ResourceType]Rule{
	domain.ResourceTypeService: {
		RequiredProperties: []string{"endpoint", "protocol"},
		OptionalProperties: []string{"port", "health_check_path", "owner_team"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeDatabase: {
		RequiredProperties: []string{"connection_string", "provider"},
		OptionalProperties: []string{"region", "replica_count"},
		RequiredMetadata:   []string{"description", "environment"},
	},
	domain.ResourceTypeTable: {
		RequiredProperties: []string{"schema", "storage_format"},
		OptionalProperties: []string{"partition_key", "row_count_estimate"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeModel: {
		RequiredProperties: []string{"framework", "task_type"},
		OptionalProperties: []string{"training_dataset", "accuracy"},
		RequiredMetadata:   []string{"description", "owner_team"},
	},
	domain.ResourceTypeDataset: {
		RequiredProperties: []string{"storage_location", "format"},
		OptionalProperties: []string{"row_count_estimate", "refresh_schedule"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeAPI: {
		RequiredProperties: []string{"base_url", "spec_format"},
		OptionalProperties: []string{"auth_method", "version_header"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeQueue: {
		RequiredProperties: []string{"broker", "durability"},
		OptionalProperties: []string{"max_retries", "visibility_timeout"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeTopic: {
		RequiredProperties: []string{"broker", "partition_count"},
		OptionalProperties: []string{"retention_ms", "compaction"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeStream: {
		RequiredProperties: []string{"source", "format"},
		OptionalProperties: []string{"window_size", "watermark_delay"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeSecret: {
		RequiredProperties: []string{"vault_path", "rotation_policy"},
		OptionalProperties: []string{"expires_at"},
		RequiredMetadata:   []string{"description", "owner_team"},
	},
	domain.ResourceTypeConfiguration: {
		RequiredProperties: []string{"scope", "format"},
		OptionalProperties: []string{"default_value"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypeDashboard: {
		RequiredProperties: []string{"tool", "url"},
		OptionalProperties: []string{"refresh_interval"},
		RequiredMetadata:   []string{"description", "owner_team"},
	},
	domain.ResourceTypeReport: {
		RequiredProperties: []string{"tool", "schedule"},
		OptionalProperties: []string{"recipients"},
		RequiredMetadata:   []string{"description"},
	},
	domain.ResourceTypePipeline: {
		RequiredProperties: []string{"scheduler", "trigger"},
		OptionalProperties: []string{"sla_minutes", "retry_policy"},
		RequiredMetadata:   []string{"description", "owner_team"},
	},
	domain.ResourceTypeWorkflow: {
		RequiredProperties: []string{"engine", "trigger"},
		OptionalProperties: []string{"sla_minutes"},
		RequiredMetadata:   []string{"description", "owner_team"},
	},
}

// RuleFor returns the Rule for t and whether one is registered. Unknown
// has no entry — it is already rejected at create time by the data-model
// invariant (spec §3).
func RuleFor(t domain.ResourceType) (Rule, bool) {
	rule, ok := rules[t]

	return rule, ok
}
