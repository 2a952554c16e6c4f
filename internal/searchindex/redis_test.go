package searchindex

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/domain"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStoreWithClient(client)
}

func tableResource(name, namespace string, tags ...string) *domain.Resource {
	return &domain.Resource{
		ID:        uuid.New(),
		Type:      domain.ResourceTypeTable,
		Name:      name,
		Namespace: namespace,
		Tags:      tags,
		Active:    true,
		Metadata:  map[string]any{"description": "warehouse " + name + " table"},
	}
}

func TestRedisStoreIndexAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	orders := tableResource("orders", "analytics", "pii")
	require.NoError(t, store.Index(ctx, orders))

	page, err := store.Search(ctx, "orders", 10, 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, orders.ID, page.Results[0].Resource.ID)
}

func TestRedisStoreSearchEmptyQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	page, err := store.Search(ctx, "", 10, 1)
	require.NoError(t, err)
	require.Empty(t, page.Results)
}

func TestRedisStoreSearchRanksByFieldWeight(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	nameMatch := tableResource("checkout", "analytics")
	nameMatch.Metadata = map[string]any{"description": "unrelated contents"}

	tagMatch := tableResource("other", "analytics", "checkout")
	tagMatch.Metadata = map[string]any{"description": "unrelated contents"}

	require.NoError(t, store.Index(ctx, nameMatch))
	require.NoError(t, store.Index(ctx, tagMatch))

	page, err := store.Search(ctx, "checkout", 10, 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	require.Equal(t, nameMatch.ID, page.Results[0].Resource.ID, "name match should outrank tag match")
}

func TestRedisStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	orders := tableResource("orders", "analytics")
	require.NoError(t, store.Index(ctx, orders))

	require.NoError(t, store.Delete(ctx, orders.ID))

	page, err := store.Search(ctx, "orders", 10, 1)
	require.NoError(t, err)
	require.Empty(t, page.Results)
}

func TestRedisStoreBulkIndexAndFacets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := tableResource("accounts", "finance", "pii")
	b := tableResource("budgets", "finance", "internal")

	require.NoError(t, store.BulkIndex(ctx, []*domain.Resource{a, b}))

	facets, err := store.GetFacets(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 2, facets["type:Table"])
	require.EqualValues(t, 2, facets["namespace:finance"])
	require.EqualValues(t, 1, facets["tag:pii"])
}

func TestRedisStoreAutocomplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, tableResource("checkout_events", "analytics")))
	require.NoError(t, store.Index(ctx, tableResource("checkout_sessions", "analytics")))
	require.NoError(t, store.Index(ctx, tableResource("inventory", "analytics")))

	names, err := store.Autocomplete(ctx, "check", 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"checkout_events", "checkout_sessions"}, names)
}

func TestRedisStoreSearchByTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	both := tableResource("events_a", "analytics", "pii", "critical")
	oneOnly := tableResource("events_b", "analytics", "pii")

	require.NoError(t, store.BulkIndex(ctx, []*domain.Resource{both, oneOnly}))

	page, err := store.SearchByTags(ctx, []string{"pii", "critical"}, true, 10, 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, both.ID, page.Results[0].Resource.ID)

	anyPage, err := store.SearchByTags(ctx, []string{"pii", "critical"}, false, 10, 1)
	require.NoError(t, err)
	require.Len(t, anyPage.Results, 2)
}

func TestRedisStoreSearchByTagsEmptyTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	page, err := store.SearchByTags(ctx, nil, true, 10, 1)
	require.NoError(t, err)
	require.Empty(t, page.Results)
}

func TestRedisStoreReindexAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale := tableResource("legacy", "analytics")
	require.NoError(t, store.Index(ctx, stale))

	fresh := tableResource("orders", "analytics")
	require.NoError(t, store.ReindexAll(ctx, []*domain.Resource{fresh}))

	page, err := store.Search(ctx, "legacy", 10, 1)
	require.NoError(t, err)
	require.Empty(t, page.Results, "stale documents must not survive ReindexAll")

	page, err = store.Search(ctx, "orders", 10, 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
}

func TestRedisStoreHealthCheck(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.HealthCheck(context.Background()))
}
