package searchindex

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/correlator-io/catalog/internal/domain"
)

const (
	nameWeight        = 3.0
	descriptionWeight = 2.0
	tagWeight         = 1.0

	autocompleteKey = "autocomplete:name"
	stagePrefix     = "stage:"

	ctxTimeout = 5 * time.Second

	// maxUnfilteredResults bounds the ranked set SearchByType/Namespace/Tags
	// pulls back before applying their in-process filter; large enough that
	// no realistic catalog truncates a filtered page.
	maxUnfilteredResults = 10000
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases s and splits it into alphanumeric tokens, grounded
// on the same normalise-then-split idiom the teacher uses for its
// aliasing resolver's pattern compiler.
func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// RedisStore implements Store against Redis. Grounded on
// evalgo-org-eve/db/repository.RedisRepository: url-parsed client, JSON
// document bodies, key-prefixing convention ("cache:", "lock:" there;
// "doc:", "idx:", "facet:" here).
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore parses url and pings the resulting client.
func NewRedisStore(cfg *Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse search index redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("search index connection health check failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests against
// miniredis.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// HealthCheck pings the Redis client.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func docKey(prefix string, id uuid.UUID) string        { return prefix + "doc:" + id.String() }
func nameIdxKey(prefix, token string) string            { return prefix + "idx:name:" + token }
func descriptionIdxKey(prefix, token string) string     { return prefix + "idx:description:" + token }
func tagsIdxKey(prefix, token string) string            { return prefix + "idx:tags:" + token }
func facetKey(prefix, facet string) string              { return prefix + "facet:" + facet }
func autocompleteIdxKey(prefix string) string           { return prefix + autocompleteKey }

func descriptionOf(r *domain.Resource) string {
	if r.Metadata == nil {
		return ""
	}

	if desc, ok := r.Metadata["description"].(string); ok {
		return desc
	}

	return ""
}

// indexResource writes a Resource's search document and postings under
// keys qualified by prefix ("" for the live index, "stage:" while
// rebuilding). It returns the set of keys it touched, so ReindexAll can
// clean up keys the new generation no longer needs.
func (s *RedisStore) indexResource(ctx context.Context, prefix string, r *domain.Resource) (map[string]bool, error) {
	touched := map[string]bool{}

	doc := map[string]any{
		"id":        r.ID.String(),
		"type":      string(r.Type),
		"name":      r.Name,
		"namespace": r.Namespace,
		"version":   r.Version,
		"tags":      strings.Join(r.Tags, ","),
		"active":    strconv.FormatBool(r.Active),
		"createdAt": r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt": r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	dKey := docKey(prefix, r.ID)
	if err := s.client.HSet(ctx, dKey, doc).Err(); err != nil {
		return nil, fmt.Errorf("index document %s: %w", r.ID, err)
	}

	touched[dKey] = true

	for _, token := range fuzzyTokens(r.Name) {
		key := nameIdxKey(prefix, token)
		if err := s.client.ZAdd(ctx, key, redis.Z{Score: nameWeight, Member: r.ID.String()}).Err(); err != nil {
			return nil, fmt.Errorf("index name token %q: %w", token, err)
		}

		touched[key] = true
	}

	for _, token := range tokenize(descriptionOf(r)) {
		key := descriptionIdxKey(prefix, token)
		if err := s.client.ZAdd(ctx, key, redis.Z{Score: descriptionWeight, Member: r.ID.String()}).Err(); err != nil {
			return nil, fmt.Errorf("index description token %q: %w", token, err)
		}

		touched[key] = true
	}

	for _, tag := range r.Tags {
		for _, token := range tokenize(tag) {
			key := tagsIdxKey(prefix, token)
			if err := s.client.ZAdd(ctx, key, redis.Z{Score: tagWeight, Member: r.ID.String()}).Err(); err != nil {
				return nil, fmt.Errorf("index tag token %q: %w", token, err)
			}

			touched[key] = true
		}
	}

	if err := s.client.HIncrBy(ctx, facetKey(prefix, "type"), string(r.Type), 1).Err(); err != nil {
		return nil, fmt.Errorf("increment type facet: %w", err)
	}

	touched[facetKey(prefix, "type")] = true

	if r.Namespace != "" {
		if err := s.client.HIncrBy(ctx, facetKey(prefix, "namespace"), r.Namespace, 1).Err(); err != nil {
			return nil, fmt.Errorf("increment namespace facet: %w", err)
		}

		touched[facetKey(prefix, "namespace")] = true
	}

	for _, tag := range r.Tags {
		if err := s.client.HIncrBy(ctx, facetKey(prefix, "tag"), tag, 1).Err(); err != nil {
			return nil, fmt.Errorf("increment tag facet %q: %w", tag, err)
		}
	}

	if len(r.Tags) > 0 {
		touched[facetKey(prefix, "tag")] = true
	}

	acKey := autocompleteIdxKey(prefix)
	member := strings.ToLower(r.Name) + "\x00" + r.ID.String()

	if err := s.client.ZAdd(ctx, acKey, redis.Z{Score: 0, Member: member}).Err(); err != nil {
		return nil, fmt.Errorf("index autocomplete entry: %w", err)
	}

	touched[acKey] = true

	return touched, nil
}

// fuzzyTokens returns every token of name plus every non-trivial prefix
// of each token, approximating fuzzy name matching with prefix postings
// (spec.md §9 REDESIGN FLAGS leaves the matching algorithm to the
// implementer; true edit-distance fuzziness is out of scope for a
// Redis-only index).
func fuzzyTokens(name string) []string {
	seen := map[string]bool{}

	var tokens []string

	for _, token := range tokenize(name) {
		for end := 2; end <= len(token); end++ {
			prefix := token[:end]
			if !seen[prefix] {
				seen[prefix] = true

				tokens = append(tokens, prefix)
			}
		}
	}

	return tokens
}

// Index upserts a single Resource's search document, first removing any
// stale postings from a prior version of the document.
func (s *RedisStore) Index(ctx context.Context, resource *domain.Resource) error {
	if err := s.removeDocument(ctx, "", resource.ID); err != nil {
		return err
	}

	_, err := s.indexResource(ctx, "", resource)

	return err
}

// BulkIndex upserts many Resources' search documents.
func (s *RedisStore) BulkIndex(ctx context.Context, resources []*domain.Resource) error {
	for _, r := range resources {
		if err := s.Index(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes a Resource's search document and all of its postings.
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.removeDocument(ctx, "", id)
}

func (s *RedisStore) removeDocument(ctx context.Context, prefix string, id uuid.UUID) error {
	dKey := docKey(prefix, id)

	doc, err := s.client.HGetAll(ctx, dKey).Result()
	if err != nil {
		return fmt.Errorf("read document %s: %w", id, err)
	}

	if len(doc) == 0 {
		return nil
	}

	for _, token := range fuzzyTokens(doc["name"]) {
		_ = s.client.ZRem(ctx, nameIdxKey(prefix, token), id.String()).Err()
	}

	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, descriptionIdxKey(prefix, "*"), 100).Result()
		if err != nil {
			return fmt.Errorf("scan description postings for %s: %w", id, err)
		}

		for _, key := range keys {
			_ = s.client.ZRem(ctx, key, id.String()).Err()
		}

		if cursor = next; cursor == 0 {
			break
		}
	}

	for _, tag := range splitNonEmpty(doc["tags"], ",") {
		for _, token := range tokenize(tag) {
			_ = s.client.ZRem(ctx, tagsIdxKey(prefix, token), id.String()).Err()
		}

		_ = s.client.HIncrBy(ctx, facetKey(prefix, "tag"), tag, -1).Err()
	}

	if doc["type"] != "" {
		_ = s.client.HIncrBy(ctx, facetKey(prefix, "type"), doc["type"], -1).Err()
	}

	if doc["namespace"] != "" {
		_ = s.client.HIncrBy(ctx, facetKey(prefix, "namespace"), doc["namespace"], -1).Err()
	}

	if doc["name"] != "" {
		member := strings.ToLower(doc["name"]) + "\x00" + id.String()
		_ = s.client.ZRem(ctx, autocompleteIdxKey(prefix), member).Err()
	}

	return s.client.Del(ctx, dKey).Err()
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, sep)
}

// ReindexAll performs the atomic swap described in spec §4.4: build the
// entire new generation under stage:-prefixed keys, RENAME each onto its
// live counterpart (atomic per key), then delete any live key the new
// generation didn't touch.
func (s *RedisStore) ReindexAll(ctx context.Context, resources []*domain.Resource) error {
	oldKeys, err := s.scanLiveKeys(ctx)
	if err != nil {
		return fmt.Errorf("reindex all: scan existing keys: %w", err)
	}

	staged := map[string]bool{}

	for _, r := range resources {
		touched, err := s.indexResource(ctx, stagePrefix, r)
		if err != nil {
			return fmt.Errorf("reindex all: stage resource %s: %w", r.ID, err)
		}

		for k := range touched {
			staged[k] = true
		}
	}

	for stageKey := range staged {
		liveKey := strings.TrimPrefix(stageKey, stagePrefix)
		if err := s.client.Rename(ctx, stageKey, liveKey).Err(); err != nil {
			return fmt.Errorf("reindex all: swap %s: %w", liveKey, err)
		}

		delete(oldKeys, liveKey)
	}

	if len(oldKeys) > 0 {
		keys := make([]string, 0, len(oldKeys))
		for k := range oldKeys {
			keys = append(keys, k)
		}

		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("reindex all: clear stale keys: %w", err)
		}
	}

	return nil
}

func (s *RedisStore) scanLiveKeys(ctx context.Context) (map[string]bool, error) {
	keys := map[string]bool{}

	for _, pattern := range []string{"doc:*", "idx:*", "facet:*", autocompleteKey} {
		var cursor uint64

		for {
			batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return nil, err
			}

			for _, k := range batch {
				keys[k] = true
			}

			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	return keys, nil
}

// Search ranks Resources by name, description, and tags. An empty query
// returns an empty page, not an error.
func (s *RedisStore) Search(ctx context.Context, query string, pageSize, pageNumber int) (*SearchPage, error) {
	return s.search(ctx, query, pageSize, pageNumber)
}

func (s *RedisStore) search(ctx context.Context, query string, pageSize, pageNumber int) (*SearchPage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	if pageNumber < 1 {
		pageNumber = 1
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return &SearchPage{Results: []SearchResult{}, PageNumber: pageNumber, PageSize: pageSize}, nil
	}

	unionKeys := make([]string, 0, len(tokens)*3)

	for _, token := range tokens {
		unionKeys = append(unionKeys, nameIdxKey("", token), descriptionIdxKey("", token), tagsIdxKey("", token))
	}

	destKey := "tmp:search:" + uuid.New().String()
	defer func() { _ = s.client.Del(ctx, destKey).Err() }()

	if err := s.client.ZUnionStore(ctx, destKey, &redis.ZStore{Keys: unionKeys, Aggregate: "SUM"}).Err(); err != nil {
		return nil, fmt.Errorf("search: union index: %w", err)
	}

	total, err := s.client.ZCard(ctx, destKey).Result()
	if err != nil {
		return nil, fmt.Errorf("search: count results: %w", err)
	}

	offset := int64((pageNumber - 1) * pageSize)

	hits, err := s.client.ZRevRangeWithScores(ctx, destKey, offset, offset+int64(pageSize)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("search: fetch page: %w", err)
	}

	results, err := s.hydrate(ctx, hits)
	if err != nil {
		return nil, err
	}

	return &SearchPage{
		Results:    results,
		TotalCount: int(total),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

func (s *RedisStore) hydrate(ctx context.Context, hits []redis.Z) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(hits))

	for _, hit := range hits {
		id, err := uuid.Parse(hit.Member.(string))
		if err != nil {
			continue
		}

		doc, err := s.client.HGetAll(ctx, docKey("", id)).Result()
		if err != nil {
			return nil, fmt.Errorf("hydrate search hit %s: %w", id, err)
		}

		if len(doc) == 0 {
			continue
		}

		results = append(results, SearchResult{Resource: docToResource(doc), Score: hit.Score})
	}

	return results, nil
}

func docToResource(doc map[string]string) *domain.Resource {
	id, _ := uuid.Parse(doc["id"])
	active, _ := strconv.ParseBool(doc["active"])
	createdAt, _ := time.Parse(time.RFC3339Nano, doc["createdAt"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, doc["updatedAt"])

	var tags []string
	if doc["tags"] != "" {
		tags = strings.Split(doc["tags"], ",")
	}

	return &domain.Resource{
		ID:        id,
		Type:      domain.ResourceType(doc["type"]),
		Name:      doc["name"],
		Namespace: doc["namespace"],
		Version:   doc["version"],
		Tags:      tags,
		Active:    active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// SearchByType restricts Search's ranking to a single resource type.
func (s *RedisStore) SearchByType(
	ctx context.Context,
	resourceType domain.ResourceType,
	query string,
	pageSize, pageNumber int,
) (*SearchPage, error) {
	page, err := s.search(ctx, query, maxUnfilteredResults, 1)
	if err != nil {
		return nil, err
	}

	return filterPage(page, pageSize, pageNumber, func(r *domain.Resource) bool { return r.Type == resourceType }), nil
}

// SearchByNamespace restricts Search's ranking to a single namespace.
func (s *RedisStore) SearchByNamespace(
	ctx context.Context,
	namespace, query string,
	pageSize, pageNumber int,
) (*SearchPage, error) {
	page, err := s.search(ctx, query, maxUnfilteredResults, 1)
	if err != nil {
		return nil, err
	}

	return filterPage(page, pageSize, pageNumber, func(r *domain.Resource) bool { return r.Namespace == namespace }), nil
}

// SearchByTags restricts results to Resources carrying the given tags.
func (s *RedisStore) SearchByTags(
	ctx context.Context,
	tags []string,
	matchAll bool,
	pageSize, pageNumber int,
) (*SearchPage, error) {
	if len(tags) == 0 {
		return &SearchPage{Results: []SearchResult{}, PageNumber: pageNumber, PageSize: pageSize}, nil
	}

	want := map[string]bool{}
	for _, t := range tags {
		want[t] = true
	}

	page, err := s.search(ctx, strings.Join(tags, " "), maxUnfilteredResults, 1)
	if err != nil {
		return nil, err
	}

	match := func(r *domain.Resource) bool {
		have := map[string]bool{}
		for _, t := range r.Tags {
			have[t] = true
		}

		if matchAll {
			for t := range want {
				if !have[t] {
					return false
				}
			}

			return true
		}

		for t := range want {
			if have[t] {
				return true
			}
		}

		return false
	}

	return filterPage(page, pageSize, pageNumber, match), nil
}

func filterPage(page *SearchPage, pageSize, pageNumber int, keep func(*domain.Resource) bool) *SearchPage {
	if pageSize <= 0 {
		pageSize = 10
	}

	if pageNumber < 1 {
		pageNumber = 1
	}

	filtered := make([]SearchResult, 0, len(page.Results))

	for _, r := range page.Results {
		if keep(r.Resource) {
			filtered = append(filtered, r)
		}
	}

	start := (pageNumber - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}

	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return &SearchPage{
		Results:    filtered[start:end],
		TotalCount: len(filtered),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
}

// Autocomplete returns up to limit name completions for prefix.
func (s *RedisStore) Autocomplete(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	lower := strings.ToLower(prefix)

	members, err := s.client.ZRangeByLex(ctx, autocompleteIdxKey(""), &redis.ZRangeBy{
		Min: "[" + lower,
		Max: "[" + lower + "\xff",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}

	seen := map[string]bool{}

	names := make([]string, 0, limit)

	for _, member := range members {
		parts := strings.SplitN(member, "\x00", 2)
		if len(parts) != 2 {
			continue
		}

		if seen[parts[0]] {
			continue
		}

		seen[parts[0]] = true

		names = append(names, parts[0])

		if len(names) >= limit {
			break
		}
	}

	return names, nil
}

// GetFacets returns counts keyed "type:X", "namespace:X", "tag:X" across
// all indexed Resources.
// GetFacets returns global counts; query is accepted for interface
// forward-compatibility but always ignored, so facets never scope to a
// search result set.
func (s *RedisStore) GetFacets(ctx context.Context, query string) (map[string]int64, error) {
	facets := make(map[string]int64)

	for _, kind := range []string{"type", "namespace", "tag"} {
		counts, err := s.client.HGetAll(ctx, facetKey("", kind)).Result()
		if err != nil {
			return nil, fmt.Errorf("get facets %s: %w", kind, err)
		}

		for value, countStr := range counts {
			count, err := strconv.ParseInt(countStr, 10, 64)
			if err != nil || count <= 0 {
				continue
			}

			facets[kind+":"+value] = count
		}
	}

	return facets, nil
}
