package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedlab-org/rerankkit/eval"
)

// Metric names stored in eval_results.metric.
const (
	MetricNDCG      = "ndcg"
	MetricDiversity = "diversity"
)

type RunSpec struct {
	// Model whose item vectors backed the similarity side of the sweep.
	Model string
	// K is the cut-off depth the sweep used.
	K int
	// Lambdas the sweep covered, in sweep order.
	Lambdas []float32
	// Notes is free-form operator context (dataset split, config hash, ...).
	Notes string
}

// InsertRun records one sweep run in `<schema>.eval_runs` and returns its id.
func InsertRun(ctx context.Context, pool *pgxpool.Pool, schema string, spec RunSpec) (int64, error) {
	if pool == nil {
		return 0, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return 0, fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(spec.Model) == "" {
		return 0, fmt.Errorf("model is required")
	}
	if spec.K <= 0 {
		return 0, fmt.Errorf("k must be > 0")
	}
	if len(spec.Lambdas) == 0 {
		return 0, fmt.Errorf("lambdas are required")
	}

	q := fmt.Sprintf(`
		INSERT INTO %s.eval_runs (model, k, lambdas, notes, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id
	`, qs)

	var id int64
	if err := pool.QueryRow(ctx, q, spec.Model, spec.K, spec.Lambdas, spec.Notes).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertSeries stores one metric's swept values for a run. Re-inserting a
// (run, metric, lambda) point overwrites its value, so a re-run of the same
// sweep is idempotent.
func InsertSeries(ctx context.Context, pool *pgxpool.Pool, schema string, runID int64, metric string, series eval.Series) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(metric) == "" {
		return fmt.Errorf("metric is required")
	}
	if len(series) == 0 {
		return nil
	}

	lambdas := make([]float32, len(series))
	values := make([]float64, len(series))
	for i, p := range series {
		lambdas[i] = p.Lambda
		values[i] = p.Value
	}

	q := fmt.Sprintf(`
		INSERT INTO %s.eval_results (run_id, metric, lambda, value)
		SELECT $1, $2, t.lambda, t.value
		FROM unnest($3::float4[], $4::float8[]) AS t(lambda, value)
		ON CONFLICT (run_id, metric, lambda) DO UPDATE SET
			value = EXCLUDED.value
	`, qs)

	_, err = pool.Exec(ctx, q, runID, metric, lambdas, values)
	return err
}

// LoadSeries reads one metric series for a run, ordered by ascending lambda.
func LoadSeries(ctx context.Context, pool *pgxpool.Pool, schema string, runID int64, metric string) (eval.Series, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	qs, err := quoteIdent(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if strings.TrimSpace(metric) == "" {
		return nil, fmt.Errorf("metric is required")
	}

	q := fmt.Sprintf(`
		SELECT lambda, value
		FROM %s.eval_results
		WHERE run_id = $1 AND metric = $2
		ORDER BY lambda
	`, qs)

	rows, err := pool.Query(ctx, q, runID, metric)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out eval.Series
	for rows.Next() {
		var p eval.Point
		if err := rows.Scan(&p.Lambda, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
