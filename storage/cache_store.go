package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arohandas/introute/models"
)

// CacheStore implements internal/cache.Store against the routing_cache
// table. Save uses INSERT ... ON CONFLICT DO UPDATE so that two
// concurrent misses racing to insert the same exact_hash resolve to a
// last-writer-wins update rather than a duplicate row or an error,
// matching the write-path's documented race tolerance.
type CacheStore struct {
	db *DB
}

// NewCacheStore adapts db to internal/cache.Store.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

func encodeEmbedding(embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", nil
	}
	b, err := json.Marshal(embedding)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEmbedding(raw sql.NullString) ([]float32, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(raw.String), &embedding); err != nil {
		return nil, err
	}
	return embedding, nil
}

func encodeFeatures(features models.FeatureSet) (string, error) {
	b, err := json.Marshal(features.Slice())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFeatures(raw sql.NullString) (models.FeatureSet, error) {
	if !raw.Valid || raw.String == "" {
		return models.NewFeatureSet(), nil
	}
	var features []models.Feature
	if err := json.Unmarshal([]byte(raw.String), &features); err != nil {
		return nil, err
	}
	return models.NewFeatureSet(features...), nil
}

func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func scanCacheEntry(row interface {
	Scan(dest ...any) error
}) (models.CacheEntry, error) {
	var (
		entry             models.CacheEntry
		embeddingJSON     sql.NullString
		featuresJSON      sql.NullString
		reasoning         sql.NullString
		suggestedToolsRaw sql.NullString
		lastHitAt         sql.NullTime
		estLatencyMS      int64
		isActive          bool
	)

	err := row.Scan(
		&entry.ExactHash,
		&entry.NormalizedText,
		&embeddingJSON,
		&entry.Classification.Category,
		&featuresJSON,
		&entry.Classification.Complexity,
		&entry.Classification.Confidence,
		&entry.Classification.EstimatedCost,
		&estLatencyMS,
		&entry.Backend,
		&reasoning,
		&suggestedToolsRaw,
		&entry.CreatedAt,
		&entry.ExpiresAt,
		&entry.HitCount,
		&lastHitAt,
		&isActive,
	)
	if err != nil {
		return models.CacheEntry{}, err
	}

	entry.Embedding, err = decodeEmbedding(embeddingJSON)
	if err != nil {
		return models.CacheEntry{}, err
	}
	entry.Classification.Features, err = decodeFeatures(featuresJSON)
	if err != nil {
		return models.CacheEntry{}, err
	}
	entry.SuggestedTools, err = decodeStrings(suggestedToolsRaw)
	if err != nil {
		return models.CacheEntry{}, err
	}
	entry.Reasoning = reasoning.String
	entry.Classification.EstimatedLatency = time.Duration(estLatencyMS) * time.Millisecond
	if lastHitAt.Valid {
		entry.LastHitAt = lastHitAt.Time
	}
	entry.IsActive = isActive
	return entry, nil
}

const cacheEntryColumns = `exact_hash, normalized_text, embedding, category, features,
	complexity, confidence, estimated_cost, estimated_latency_ms, backend,
	reasoning, suggested_tools,
	created_at, expires_at, hit_count, last_hit_at, is_active`

// GetByHash looks up the single row for hash, if any.
func (s *CacheStore) GetByHash(ctx context.Context, hash string) (models.CacheEntry, bool, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+cacheEntryColumns+` FROM routing_cache WHERE exact_hash = ?`, hash)
	entry, err := scanCacheEntry(row)
	if err == sql.ErrNoRows {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("storage: get cache entry %s: %w", hash, err)
	}
	return entry, true, nil
}

// Save upserts entry by ExactHash.
func (s *CacheStore) Save(ctx context.Context, entry models.CacheEntry) error {
	embeddingJSON, err := encodeEmbedding(entry.Embedding)
	if err != nil {
		return fmt.Errorf("storage: encode embedding for %s: %w", entry.ExactHash, err)
	}
	featuresJSON, err := encodeFeatures(entry.Classification.Features)
	if err != nil {
		return fmt.Errorf("storage: encode features for %s: %w", entry.ExactHash, err)
	}
	suggestedToolsJSON, err := encodeStrings(entry.SuggestedTools)
	if err != nil {
		return fmt.Errorf("storage: encode suggested tools for %s: %w", entry.ExactHash, err)
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO routing_cache (`+cacheEntryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exact_hash) DO UPDATE SET
			normalized_text = excluded.normalized_text,
			embedding = excluded.embedding,
			category = excluded.category,
			features = excluded.features,
			complexity = excluded.complexity,
			confidence = excluded.confidence,
			estimated_cost = excluded.estimated_cost,
			estimated_latency_ms = excluded.estimated_latency_ms,
			backend = excluded.backend,
			reasoning = excluded.reasoning,
			suggested_tools = excluded.suggested_tools,
			expires_at = excluded.expires_at,
			is_active = excluded.is_active
	`,
		entry.ExactHash, entry.NormalizedText, embeddingJSON,
		entry.Classification.Category, featuresJSON, entry.Classification.Complexity,
		entry.Classification.Confidence, entry.Classification.EstimatedCost, entry.Classification.EstimatedLatency.Milliseconds(),
		entry.Backend, nullableString(entry.Reasoning), suggestedToolsJSON,
		entry.CreatedAt, entry.ExpiresAt, entry.HitCount, nullableTime(entry.LastHitAt), entry.IsActive,
	)
	if err != nil {
		return fmt.Errorf("storage: save cache entry %s: %w", entry.ExactHash, err)
	}
	return nil
}

// IncrementHit bumps hit_count and stamps last_hit_at atomically.
func (s *CacheStore) IncrementHit(ctx context.Context, hash string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE routing_cache SET hit_count = hit_count + 1, last_hit_at = ? WHERE exact_hash = ?`,
		time.Now(), hash)
	if err != nil {
		return fmt.Errorf("storage: increment hit for %s: %w", hash, err)
	}
	return nil
}

// Stats summarizes current occupancy.
func (s *CacheStore) Stats(ctx context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM routing_cache`).
		Scan(&stats.TotalEntries, &stats.TotalHits)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("storage: cache stats: %w", err)
	}

	now := time.Now()
	err = s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM routing_cache WHERE is_active = 1 AND expires_at > ?`, now).
		Scan(&stats.ActiveEntries)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("storage: active entry count: %w", err)
	}
	stats.ExpiredEntries = stats.TotalEntries - stats.ActiveEntries
	return stats, nil
}

// Prune deletes every entry whose expires_at is at or before now, or every
// entry regardless of expiry when expiredOnly is false.
func (s *CacheStore) Prune(ctx context.Context, now time.Time, expiredOnly bool) (int64, error) {
	query := `DELETE FROM routing_cache`
	args := []any{}
	if expiredOnly {
		query += ` WHERE expires_at <= ?`
		args = append(args, now)
	}
	result, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("storage: prune cache: %w", err)
	}
	return result.RowsAffected()
}

// All returns every entry, active or not, for seeding a SimilarityIndex
// at startup.
func (s *CacheStore) All(ctx context.Context) ([]models.CacheEntry, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT `+cacheEntryColumns+` FROM routing_cache`)
	if err != nil {
		return nil, fmt.Errorf("storage: list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
