// Package schemaregistry names the external schema-compatibility
// collaborator spec.md §1 delegates to ("compatibility is delegated to a
// schema-registry collaborator") without this module owning schema
// evolution. Checker is the contract the Event Producer calls before
// publishing; the in-memory Registry satisfies it for this module and its
// tests.
package schemaregistry

import (
	"context"
	"sync"

	"github.com/correlator-io/catalog/internal/domain"
)

// Checker validates that eventType's schemaVersion is compatible with
// whatever a real registry would currently accept.
type Checker interface {
	Check(ctx context.Context, eventType, schemaVersion string) error
}

// Registry is an in-memory, process-local Checker: the first schemaVersion
// seen for an eventType becomes that type's registered version; later
// checks pass only for that exact version. It exists so the Producer has
// somewhere real to call without this module running an actual registry.
type Registry struct {
	mu       sync.RWMutex
	versions map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{versions: make(map[string]string)}
}

// Check registers eventType's schemaVersion on first sight; on subsequent
// calls it rejects a different schemaVersion for the same eventType.
func (r *Registry) Check(_ context.Context, eventType, schemaVersion string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered, ok := r.versions[eventType]
	if !ok {
		r.versions[eventType] = schemaVersion

		return nil
	}

	if registered != schemaVersion {
		return domain.Invalidf("schema version %s for event type %s is incompatible with registered version %s",
			schemaVersion, eventType, registered)
	}

	return nil
}

// NoopChecker always succeeds; it is the Checker a caller reaches for when
// schema compatibility is enforced entirely outside this module.
type NoopChecker struct{}

// Check always returns nil.
func (NoopChecker) Check(context.Context, string, string) error {
	return nil
}
