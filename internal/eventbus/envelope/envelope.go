// Package envelope defines the catalog's bus-traffic unit: a CloudEvents
// 1.0 Event plus sibling processing Metadata and a schemaVersion stamp
// (spec §3 "Event Envelope"). Grounded on internal/ingestion/models.go's
// RunEvent envelope shape, generalized from an OpenLineage-specific
// struct into a transport-agnostic wrapper around arbitrary JSON-
// serialisable payload types. No repo in the pack imports a CloudEvents
// SDK, so this struct is hand-rolled — see DESIGN.md's cloudevents SDK
// note.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the CloudEvents spec version every Event carries (spec
// §4.6).
const SpecVersion = "1.0"

// DataContentType is the content type every Event carries; the catalog
// only ever serialises JSON payloads.
const DataContentType = "application/json"

// DefaultSchemaVersion is the Envelope.SchemaVersion stamp used when the
// caller does not override it (spec §3: "default 1.0.0").
const DefaultSchemaVersion = "1.0.0"

// DefaultMaxRetries is Metadata.MaxRetries's default (spec §3).
const DefaultMaxRetries = 5

// DefaultPriority is Metadata.Priority's default (spec §3: "0..10, default 5").
const DefaultPriority = 5

// Event carries the CloudEvents 1.0 attributes (spec §3).
type Event struct {
	ID              uuid.UUID       `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype"`
	DataSchema      string          `json:"dataschema,omitempty"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	Data            json.RawMessage `json:"data"`
}

// Metadata carries the processing/correlation attributes sibling to
// Event (spec §3).
type Metadata struct {
	CorrelationID uuid.UUID         `json:"correlationId"`
	CausationID   uuid.UUID         `json:"causationId,omitempty"`
	TenantID      string            `json:"tenantId,omitempty"`
	UserID        string            `json:"userId,omitempty"`
	RetryCount    int               `json:"retryCount"`
	MaxRetries    int               `json:"maxRetries"`
	PublishedAt   time.Time         `json:"publishedAt"`
	Priority      int               `json:"priority"`
	PartitionKey  string            `json:"partitionKey,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// Envelope is the unit of bus traffic: an Event, its Metadata, and a
// schema evolution stamp (spec §3, §6 "Event envelope wire format").
type Envelope struct {
	Event         Event    `json:"event"`
	Metadata      Metadata `json:"metadata"`
	SchemaVersion string   `json:"schemaVersion"`
}

// Option configures optional Create parameters, following the
// functional-options idiom the teacher uses for storage.WithAliasResolver.
type Option func(*Envelope)

// WithSubject sets the CloudEvents subject attribute.
func WithSubject(subject string) Option {
	return func(e *Envelope) { e.Event.Subject = subject }
}

// WithCorrelationID overrides the default new-UUID correlation id.
func WithCorrelationID(id uuid.UUID) Option {
	return func(e *Envelope) { e.Metadata.CorrelationID = id }
}

// WithCausationID sets the id of the event that caused this one.
func WithCausationID(id uuid.UUID) Option {
	return func(e *Envelope) { e.Metadata.CausationID = id }
}

// WithPartitionKey overrides the default (envelope.event.id) partition key.
func WithPartitionKey(key string) Option {
	return func(e *Envelope) { e.Metadata.PartitionKey = key }
}

// WithTenantID sets the originating tenant.
func WithTenantID(tenantID string) Option {
	return func(e *Envelope) { e.Metadata.TenantID = tenantID }
}

// WithUserID sets the originating user.
func WithUserID(userID string) Option {
	return func(e *Envelope) { e.Metadata.UserID = userID }
}

// WithPriority overrides the default priority (0..10).
func WithPriority(priority int) Option {
	return func(e *Envelope) { e.Metadata.Priority = priority }
}

// WithDataSchema sets the CloudEvents dataschema attribute.
func WithDataSchema(schema string) Option {
	return func(e *Envelope) { e.Event.DataSchema = schema }
}

// WithHeaders sets free-form string headers carried alongside the
// well-known metadata fields.
func WithHeaders(headers map[string]string) Option {
	return func(e *Envelope) { e.Metadata.Headers = headers }
}

// Create builds an Envelope wrapping data, stamping id/time/specversion/
// datacontenttype and a new correlationId unless WithCorrelationID
// overrides it (spec §4.6).
func Create(data any, eventType, source string, opts ...Option) (*Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	e := &Envelope{
		Event: Event{
			ID:              uuid.New(),
			Source:          source,
			SpecVersion:     SpecVersion,
			Type:            eventType,
			DataContentType: DataContentType,
			Time:            now,
			Data:            payload,
		},
		Metadata: Metadata{
			CorrelationID: uuid.New(),
			MaxRetries:    DefaultMaxRetries,
			PublishedAt:   now,
			Priority:      DefaultPriority,
		},
		SchemaVersion: DefaultSchemaVersion,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Serialise marshals e to its wire JSON form.
func Serialise(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Deserialise parses the wire JSON form back into an Envelope.
func Deserialise(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}

	return &e, nil
}
