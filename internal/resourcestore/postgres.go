package resourcestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/correlator-io/catalog/internal/aliasing"
	"github.com/correlator-io/catalog/internal/domain"
)

const (
	postgresDriver = "postgres"
	ctxTimeout     = 5 * time.Second
)

// Connection wraps a pooled PostgreSQL connection. Grounded on
// internal/storage.Connection from the teacher.
type Connection struct {
	*sql.DB
}

// NewConnection opens and pings a new pooled PostgreSQL connection.
func NewConnection(cfg *Config) (*Connection, error) {
	db, err := sql.Open(postgresDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("resource store connection health check failed: %w", err)
	}

	return &Connection{db}, nil
}

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	conn    *Connection
	aliases *aliasing.Resolver
	logger  *slog.Logger
}

// Compile-time interface assertion.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing Connection as a Store.
func NewPostgresStore(conn *Connection) *PostgresStore {
	return &PostgresStore{
		conn: conn,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
	}
}

// SetAliasResolver wires a resource-name alias resolver into the store.
// A nil resolver (the default) leaves GetByName matching names exactly.
func (s *PostgresStore) SetAliasResolver(resolver *aliasing.Resolver) {
	s.aliases = resolver
}

// HealthCheck pings the underlying database.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()
	}

	return s.conn.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

const resourceColumns = `
	id, type, name, namespace, version, tags, metadata, properties,
	created_at, updated_at, created_by, active
`

// Get retrieves a Resource by id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)

	resource, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("resource %s", id)
	}

	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", id, err)
	}

	return resource, nil
}

// GetByName retrieves a Resource by its (type, name, namespace) key.
func (s *PostgresStore) GetByName(
	ctx context.Context,
	resourceType domain.ResourceType,
	name, namespace string,
) (*domain.Resource, error) {
	if s.aliases != nil {
		name = s.aliases.Resolve(name)
	}

	row := s.conn.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE type = $1 AND name = $2 AND namespace = $3
	`, string(resourceType), name, namespace)

	resource, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("resource %s/%s/%s", resourceType, namespace, name)
	}

	if err != nil {
		return nil, fmt.Errorf("get resource by name %s/%s/%s: %w", resourceType, namespace, name, err)
	}

	return resource, nil
}

// ListByType returns all Resources of the given type.
func (s *PostgresStore) ListByType(ctx context.Context, resourceType domain.ResourceType) ([]*domain.Resource, error) {
	return s.queryResources(ctx, `SELECT `+resourceColumns+` FROM resources WHERE type = $1 ORDER BY created_at, id`,
		string(resourceType))
}

// ListByNamespace returns all Resources in the given namespace.
func (s *PostgresStore) ListByNamespace(ctx context.Context, namespace string) ([]*domain.Resource, error) {
	return s.queryResources(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE namespace = $1 ORDER BY created_at, id`, namespace)
}

// ListByTags returns all Resources carrying any of the given tags.
func (s *PostgresStore) ListByTags(ctx context.Context, tags []string) ([]*domain.Resource, error) {
	if len(tags) == 0 {
		return []*domain.Resource{}, nil
	}

	return s.queryResources(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE tags && $1 ORDER BY created_at, id`, pq.Array(tags))
}

// Create assigns an id if zero, stamps timestamps, and enforces uniqueness.
func (s *PostgresStore) Create(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	toInsert := resource.Clone()

	if toInsert.ID == uuid.Nil {
		toInsert.ID = uuid.New()
	}

	now := time.Now().UTC()
	toInsert.CreatedAt = now
	toInsert.UpdatedAt = now

	metadataJSON, err := json.Marshal(nonNilMap(toInsert.Metadata))
	if err != nil {
		return nil, domain.Invalidf("metadata is not JSON-serialisable: %v", err)
	}

	propertiesJSON, err := json.Marshal(nonNilMap(toInsert.Properties))
	if err != nil {
		return nil, domain.Invalidf("properties is not JSON-serialisable: %v", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO resources (id, type, name, namespace, version, tags, metadata, properties,
			created_at, updated_at, created_by, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		toInsert.ID, string(toInsert.Type), toInsert.Name, toInsert.Namespace, toInsert.Version,
		pq.Array(toInsert.Tags), metadataJSON, propertiesJSON,
		toInsert.CreatedAt, toInsert.UpdatedAt, toInsert.CreatedBy, toInsert.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflictf("resource %s/%s/%s already exists", toInsert.Type, toInsert.Namespace, toInsert.Name)
		}

		return nil, fmt.Errorf("create resource: %w", err)
	}

	return toInsert, nil
}

// Update looks up by id, rewrites mutable fields, bumps updatedAt, and
// retains createdAt/createdBy.
func (s *PostgresStore) Update(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	existing, err := s.Get(ctx, resource.ID)
	if err != nil {
		return nil, err
	}

	toUpdate := resource.Clone()
	toUpdate.CreatedAt = existing.CreatedAt
	toUpdate.CreatedBy = existing.CreatedBy
	toUpdate.Type = existing.Type
	toUpdate.UpdatedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(nonNilMap(toUpdate.Metadata))
	if err != nil {
		return nil, domain.Invalidf("metadata is not JSON-serialisable: %v", err)
	}

	propertiesJSON, err := json.Marshal(nonNilMap(toUpdate.Properties))
	if err != nil {
		return nil, domain.Invalidf("properties is not JSON-serialisable: %v", err)
	}

	result, err := s.conn.ExecContext(ctx, `
		UPDATE resources
		SET name = $2, namespace = $3, version = $4, tags = $5, metadata = $6, properties = $7,
			updated_at = $8, active = $9
		WHERE id = $1
	`,
		toUpdate.ID, toUpdate.Name, toUpdate.Namespace, toUpdate.Version,
		pq.Array(toUpdate.Tags), metadataJSON, propertiesJSON, toUpdate.UpdatedAt, toUpdate.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflictf("resource %s/%s/%s already exists", toUpdate.Type, toUpdate.Namespace, toUpdate.Name)
		}

		return nil, fmt.Errorf("update resource %s: %w", resource.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update resource %s: %w", resource.ID, err)
	}

	if rows == 0 {
		return nil, domain.NotFoundf("resource %s", resource.ID)
	}

	return toUpdate, nil
}

// Delete removes a Resource by id.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete resource %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete resource %s: %w", id, err)
	}

	return rows > 0, nil
}

// Page returns a stable-order page of Resources ordered by createdAt.
func (s *PostgresStore) Page(ctx context.Context, pageSize, pageNumber int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = 1
	}

	if pageNumber < 1 {
		pageNumber = 1
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`).Scan(&total); err != nil {
		return nil, fmt.Errorf("page resources: count: %w", err)
	}

	offset := (pageNumber - 1) * pageSize

	resources, err := s.queryResources(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &Page{
		Resources:  resources,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

func (s *PostgresStore) queryResources(ctx context.Context, query string, args ...any) ([]*domain.Resource, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	resources := make([]*domain.Resource, 0)

	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource row: %w", err)
		}

		resources = append(resources, resource)
	}

	return resources, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanResource works for both.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	var (
		r                       domain.Resource
		resourceType            string
		namespace, version      sql.NullString
		metadataJSON, propsJSON []byte
		createdBy               sql.NullString
	)

	tagsArray := pq.StringArray{}

	if err := row.Scan(
		&r.ID, &resourceType, &r.Name, &namespace, &version, &tagsArray,
		&metadataJSON, &propsJSON, &r.CreatedAt, &r.UpdatedAt, &createdBy, &r.Active,
	); err != nil {
		return nil, err
	}

	r.Type = domain.ResourceType(resourceType)
	r.Namespace = namespace.String
	r.Version = version.String
	r.CreatedBy = createdBy.String
	r.Tags = []string(tagsArray)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	if len(propsJSON) > 0 {
		if err := json.Unmarshal(propsJSON, &r.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal properties: %w", err)
		}
	}

	return &r, nil
}

func nonNilMap[T any](m map[string]T) map[string]T {
	if m == nil {
		return map[string]T{}
	}

	return m
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
