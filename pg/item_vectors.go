package pg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const itemVectorsTable = "item_vectors"

// UpsertItemVectors writes one vector per item id for a model into
// `<schema>.item_vectors`, inside a single transaction. Items are written in
// sorted id order so concurrent upserts of overlapping batches cannot
// deadlock each other.
func UpsertItemVectors(ctx context.Context, pool *pgxpool.Pool, schema string, model string, dim int, vectors map[string][]float32) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	if dim <= 0 {
		return fmt.Errorf("dim must be > 0")
	}
	if len(vectors) == 0 {
		return nil
	}

	ids := make([]string, 0, len(vectors))
	for id, vec := range vectors {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("item id is required")
		}
		if len(vec) != dim {
			return fmt.Errorf("item %q: vector has %d dims, want %d", id, len(vec), dim)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	q := fmt.Sprintf(`
		INSERT INTO %s.%s (model, item_id, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (model, item_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, qs, itemVectorsTable)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range ids {
		if _, err := tx.Exec(ctx, q, model, id, pgvector.NewHalfVector(vectors[id])); err != nil {
			return fmt.Errorf("upsert item %q: %w", id, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadItemVectors reads every stored vector for a model, keyed by item id.
// The result feeds similarity.NewFromVectors.
func LoadItemVectors(ctx context.Context, pool *pgxpool.Pool, schema string, model string) (map[string][]float32, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	// Cast to text so the halfvec scans through pgvector-go without
	// registering the extension's OIDs on the pool.
	q := fmt.Sprintf(`
		SELECT item_id, embedding::text
		FROM %s.%s
		WHERE model = $1 AND embedding IS NOT NULL
	`, qs, itemVectorsTable)

	rows, err := pool.Query(ctx, q, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var vec pgvector.HalfVector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, err
		}
		out[id] = vec.Slice()
	}
	return out, rows.Err()
}

// FilterMissingItemVectors returns the subset of itemIDs that do NOT have a
// stored vector for the model, preserving input order. Precompute uses this
// to resume without re-embedding.
func FilterMissingItemVectors(ctx context.Context, pool *pgxpool.Pool, schema string, model string, itemIDs []string) ([]string, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(itemIDs) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		WITH ids AS (
			SELECT t.item_id, t.ord
			FROM unnest($2::text[]) WITH ORDINALITY AS t(item_id, ord)
		)
		SELECT ids.item_id
		FROM ids
		LEFT JOIN %s.%s iv
			ON iv.model = $1
			AND iv.item_id = ids.item_id
		WHERE iv.item_id IS NULL
		ORDER BY ids.ord
	`, qs, itemVectorsTable)

	rows, err := pool.Query(ctx, q, model, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}

// DeleteItemVectorsForModel removes every vector stored under a model.
func DeleteItemVectorsForModel(ctx context.Context, pool *pgxpool.Pool, schema string, model string) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	q := fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE model = $1
	`, qs, itemVectorsTable)
	_, err = pool.Exec(ctx, q, model)
	return err
}

type Neighbor struct {
	ItemID     string
	Similarity float32
}

type NearestOptions struct {
	// Exclude item IDs beyond the source item itself.
	ExcludeIDs []string

	// Minimum cosine similarity threshold.
	MinSimilarity float32
}

// NearestItems returns the stored neighbors of an item's stored vector for
// the same model, excluding the item itself. Useful for spot-checking what
// the similarity side of reranking will see. Distance ties order by item id.
func NearestItems(ctx context.Context, pool *pgxpool.Pool, schema string, model string, itemID string, limit int, opts NearestOptions) ([]Neighbor, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("item id is required")
	}
	if limit <= 0 {
		return []Neighbor{}, nil
	}

	table := qs + "." + itemVectorsTable

	where := `
		WHERE iv.model = $1
		  AND iv.embedding IS NOT NULL
		  AND iv.item_id <> $2
	`
	args := []any{model, itemID, limit}

	argN := 4
	if len(opts.ExcludeIDs) > 0 {
		where += fmt.Sprintf(" AND iv.item_id <> ALL($%d::text[])\n", argN)
		args = append(args, opts.ExcludeIDs)
		argN++
	}

	sql := fmt.Sprintf(`
		WITH source AS (
			SELECT embedding
			FROM %s
			WHERE model = $1 AND item_id = $2 AND embedding IS NOT NULL
			LIMIT 1
		)
		SELECT
			iv.item_id,
			(1 - (iv.embedding <=> s.embedding))::float4 AS similarity
		FROM %s iv, source s
		%s
		ORDER BY iv.embedding <=> s.embedding, iv.item_id
		LIMIT $3
	`, table, table, where)

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ItemID, &n.Similarity); err != nil {
			return nil, err
		}
		if opts.MinSimilarity > 0 && n.Similarity < opts.MinSimilarity {
			continue
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
