package resourcestore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresStore(&Connection{db}), mock
}

func sampleResource() *domain.Resource {
	return &domain.Resource{
		ID:        uuid.New(),
		Type:      domain.ResourceTypeDataset,
		Name:      "orders",
		Namespace: "analytics",
		Version:   "1.0.0",
		Tags:      []string{"pii", "critical"},
		Active:    true,
		CreatedBy: "pipeline-x",
	}
}

func resourceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "type", "name", "namespace", "version", "tags", "metadata", "properties",
		"created_at", "updated_at", "created_by", "active",
	})
}

func addResourceRow(rows *sqlmock.Rows, r *domain.Resource) *sqlmock.Rows {
	tags, _ := pq.StringArray(r.Tags).Value()

	return rows.AddRow(
		r.ID.String(), string(r.Type), r.Name, r.Namespace, r.Version, tags,
		[]byte("{}"), []byte("{}"), r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.Active,
	)
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	want := sampleResource()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM resources WHERE id = \$1`).
			WithArgs(want.ID).
			WillReturnRows(addResourceRow(resourceRows(), want))

		got, err := store.Get(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Tags, got.Tags)
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(`SELECT .* FROM resources WHERE id = \$1`).
			WithArgs(missing).
			WillReturnRows(resourceRows())

		_, err := store.Get(context.Background(), missing)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	t.Run("assigns id and timestamps", func(t *testing.T) {
		r := sampleResource()
		r.ID = uuid.Nil

		mock.ExpectExec(`INSERT INTO resources`).
			WithArgs(
				sqlmock.AnyArg(), string(r.Type), r.Name, r.Namespace, r.Version,
				pq.StringArray(r.Tags), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), r.CreatedBy, r.Active,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		created, err := store.Create(context.Background(), r)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("duplicate key maps to conflict", func(t *testing.T) {
		r := sampleResource()

		mock.ExpectExec(`INSERT INTO resources`).
			WithArgs(
				r.ID, string(r.Type), r.Name, r.Namespace, r.Version,
				pq.StringArray(r.Tags), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), r.CreatedBy, r.Active,
			).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := store.Create(context.Background(), r)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	existing := sampleResource()

	mock.ExpectQuery(`SELECT .* FROM resources WHERE id = \$1`).
		WithArgs(existing.ID).
		WillReturnRows(addResourceRow(resourceRows(), existing))

	mock.ExpectExec(`UPDATE resources`).
		WithArgs(
			existing.ID, "orders-renamed", existing.Namespace, existing.Version,
			pq.StringArray(existing.Tags), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), existing.Active,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	toUpdate := existing.Clone()
	toUpdate.Name = "orders-renamed"

	got, err := store.Update(context.Background(), toUpdate)
	require.NoError(t, err)
	assert.Equal(t, "orders-renamed", got.Name)
	assert.Equal(t, existing.CreatedAt, got.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	missing := sampleResource()

	mock.ExpectQuery(`SELECT .* FROM resources WHERE id = \$1`).
		WithArgs(missing.ID).
		WillReturnError(errors.New("sql: no rows in result set"))

	_, err := store.Update(context.Background(), missing)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM resources WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resources`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	r1, r2 := sampleResource(), sampleResource()
	mock.ExpectQuery(`SELECT .* FROM resources ORDER BY created_at, id LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(addResourceRow(addResourceRow(resourceRows(), r1), r2))

	page, err := store.Page(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Len(t, page.Resources, 2)
	assert.Equal(t, 1, page.PageNumber)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreHealthCheck(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectPing()

	require.NoError(t, store.HealthCheck(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
