package pg

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ModelSpec struct {
	Name string // stored in embedding_models.model
	Dims int    // fixed dims for the model
}

func indexSuffix(model string, dims int) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s:%d", model, dims)))
	return hex.EncodeToString(h[:8])
}

// UpsertModels syncs the configured model specs into `<schema>.embedding_models`.
func UpsertModels(ctx context.Context, pool *pgxpool.Pool, schema string, models []ModelSpec) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	// Treat `models` as the active configured set. We upsert everything
	// provided, then prune registry rows for models that are no longer active.
	var active []string
	for _, m := range models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("model name is required")
		}
		if m.Dims <= 0 {
			return fmt.Errorf("model %q dims must be > 0", name)
		}

		q := fmt.Sprintf(`
			INSERT INTO %s.embedding_models (model, dims, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (model) DO UPDATE SET
				dims = EXCLUDED.dims,
				updated_at = now()
		`, qs)
		if _, err := pool.Exec(ctx, q, name, m.Dims); err != nil {
			return err
		}

		active = append(active, name)
	}

	// NOTE: We intentionally do NOT delete from item_vectors here; that data
	// can be large and is not required for correctness (nothing reads vectors
	// for a model the host config no longer references).
	qPruneModels := fmt.Sprintf(`
		DELETE FROM %s.embedding_models
		WHERE NOT (model = ANY($1::text[]))
	`, qs)
	if _, err := pool.Exec(ctx, qPruneModels, active); err != nil {
		return err
	}

	return nil
}

// EnsureModelIndexes creates the per-model partial HNSW cosine index over
// item_vectors. Rerank similarity and the nearest-neighbor diagnostics only
// ever use cosine distance.
//
// This must NOT run inside a transaction because it uses CREATE INDEX CONCURRENTLY.
func EnsureModelIndexes(ctx context.Context, pool *pgxpool.Pool, schema string, model string, dims int) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model is required")
	}
	if dims <= 0 {
		return fmt.Errorf("dims must be > 0")
	}

	// NOTE: We intentionally cast embedding to halfvec(dims) inside the index
	// expression so each model index has fixed dimensions.
	half := HalfvecType(dims)
	pred := "model = " + quoteLiteral(model) + " AND embedding IS NOT NULL"

	cosIdx := fmt.Sprintf("idx_item_vectors_hnsw_cosine__%s", indexSuffix(model, dims))

	q := fmt.Sprintf(`
		CREATE INDEX CONCURRENTLY IF NOT EXISTS %s
		ON %s.item_vectors
		USING hnsw ((embedding::%s) halfvec_cosine_ops)
		WHERE %s
	`, cosIdx, qs, half, pred)
	if _, err := pool.Exec(ctx, q); err != nil {
		return err
	}

	return nil
}

// EnsureIndexesForModels ensures the per-model cosine index for every model spec.
func EnsureIndexesForModels(ctx context.Context, pool *pgxpool.Pool, schema string, models []ModelSpec) error {
	for _, m := range models {
		if err := EnsureModelIndexes(ctx, pool, schema, m.Name, m.Dims); err != nil {
			return err
		}
	}
	return nil
}
