package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ResourceType enumerates the kinds of entity the catalog tracks (spec §3).
type ResourceType string

// Resource types recognised by the catalog. Unknown is never a valid
// create-time type (spec §3 invariant) but is a legal sentinel for
// "type not yet determined" in intermediate processing.
const (
	ResourceTypeService       ResourceType = "Service"
	ResourceTypeDatabase      ResourceType = "Database"
	ResourceTypeTable         ResourceType = "Table"
	ResourceTypeModel         ResourceType = "Model"
	ResourceTypeDataset       ResourceType = "Dataset"
	ResourceTypeAPI           ResourceType = "API"
	ResourceTypeQueue         ResourceType = "Queue"
	ResourceTypeTopic         ResourceType = "Topic"
	ResourceTypeStream        ResourceType = "Stream"
	ResourceTypeSecret        ResourceType = "Secret"
	ResourceTypeConfiguration ResourceType = "Configuration"
	ResourceTypeDashboard     ResourceType = "Dashboard"
	ResourceTypeReport        ResourceType = "Report"
	ResourceTypePipeline      ResourceType = "Pipeline"
	ResourceTypeWorkflow      ResourceType = "Workflow"
	ResourceTypeUnknown       ResourceType = "Unknown"
)

// KnownResourceTypes lists every type recognised by the catalog, Unknown
// included, in the order spec §3 enumerates them.
var KnownResourceTypes = []ResourceType{
	ResourceTypeService, ResourceTypeDatabase, ResourceTypeTable, ResourceTypeModel,
	ResourceTypeDataset, ResourceTypeAPI, ResourceTypeQueue, ResourceTypeTopic,
	ResourceTypeStream, ResourceTypeSecret, ResourceTypeConfiguration, ResourceTypeDashboard,
	ResourceTypeReport, ResourceTypePipeline, ResourceTypeWorkflow, ResourceTypeUnknown,
}

// IsKnownResourceType reports whether t is one of KnownResourceTypes.
func IsKnownResourceType(t ResourceType) bool {
	for _, known := range KnownResourceTypes {
		if t == known {
			return true
		}
	}

	return false
}

// NamePattern and NamespacePattern are the invariants from spec §3.
var (
	NamePattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,62}[A-Za-z0-9]$`)
	NamespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$`)
)

// Resource is a catalogued entity (spec §3).
type Resource struct {
	ID         uuid.UUID
	Type       ResourceType
	Name       string
	Namespace  string // empty means absent
	Version    string // raw MAJOR.MINOR.PATCH[-tag], validated via domain.ValidSemVer
	Tags       []string
	Metadata   map[string]any
	Properties map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CreatedBy  string
	Active     bool
}

// Key returns the (type, name, namespace) uniqueness tuple (spec §3).
type Key struct {
	Type      ResourceType
	Name      string
	Namespace string
}

// Key returns r's uniqueness key.
func (r *Resource) Key() Key {
	return Key{Type: r.Type, Name: r.Name, Namespace: r.Namespace}
}

// HasTag reports whether r carries the given tag.
func (r *Resource) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// Clone returns a deep-enough copy of r for safe mutation by callers
// (maps and slices are copied; nested values inside Metadata are not).
func (r *Resource) Clone() *Resource {
	clone := *r

	if r.Tags != nil {
		clone.Tags = append([]string(nil), r.Tags...)
	}

	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}

	if r.Properties != nil {
		clone.Properties = make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			clone.Properties[k] = v
		}
	}

	return &clone
}
