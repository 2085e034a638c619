package precompute

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedlab-org/rerankkit/catalog"
	"github.com/feedlab-org/rerankkit/embedder"
	"github.com/feedlab-org/rerankkit/pg"
)

type Options struct {
	// PageSize bounds how many catalog ids each missing-vector query covers.
	PageSize int
	// BatchSize is how many titles go into one provider request.
	BatchSize int

	MaxConcurrentBatches int
	MaxRequestsPerSecond float64 // 0 = unlimited

	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// MaxItemsPerRun and MaxRuntime bound one call so large catalogs
	// precompute across repeated runs instead of one marathon.
	MaxItemsPerRun int
	MaxRuntime     time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PageSize <= 0 {
		out.PageSize = 1000
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 25
	}
	if out.MaxConcurrentBatches <= 0 {
		out.MaxConcurrentBatches = 8
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 6
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 2 * time.Second
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = time.Minute
	}
	if out.MaxItemsPerRun <= 0 {
		out.MaxItemsPerRun = 2000
	}
	if out.MaxRuntime <= 0 {
		out.MaxRuntime = 5 * time.Minute
	}
	return out
}

type workItem struct {
	id    string
	title string
}

// RunOnce embeds catalog item titles that have no stored vector yet for the
// embedder's model and upserts them into `<schema>.item_vectors`. It performs
// a bounded amount of work and returns the number of items stored; calling it
// repeatedly converges on a fully covered catalog.
//
// Provider failures are retried with backoff. Batches that keep failing, or
// fail permanently, are logged and skipped: their items stay unstored and the
// next run picks them up again.
func RunOnce(ctx context.Context, pool *pgxpool.Pool, schema string, emb embedder.Embedder, cat catalog.Catalog, opts Options) (int, error) {
	if strings.TrimSpace(schema) == "" {
		return 0, fmt.Errorf("schema is required")
	}
	if emb == nil {
		return 0, fmt.Errorf("embedder is required")
	}
	if cat == nil {
		return 0, fmt.Errorf("catalog is required")
	}
	model := strings.TrimSpace(emb.Model())
	if model == "" {
		return 0, fmt.Errorf("embedder model is required")
	}
	if pool == nil {
		return 0, fmt.Errorf("pool is required")
	}

	cfg := opts.withDefaults()
	start := time.Now()

	overBudget := func(collected int) bool {
		return collected >= cfg.MaxItemsPerRun || time.Since(start) > cfg.MaxRuntime
	}

	ids := cat.IDs()
	var work []workItem
	skippedUntitled := 0

pages:
	for pageStart := 0; pageStart < len(ids); pageStart += cfg.PageSize {
		if overBudget(len(work)) {
			break
		}
		pageEnd := pageStart + cfg.PageSize
		if pageEnd > len(ids) {
			pageEnd = len(ids)
		}

		missing, err := pg.FilterMissingItemVectors(ctx, pool, schema, model, ids[pageStart:pageEnd])
		if err != nil {
			return 0, fmt.Errorf("filter missing vectors: %w", err)
		}
		for _, id := range missing {
			if overBudget(len(work)) {
				break pages
			}
			title, ok := cat.Title(id)
			if !ok || strings.TrimSpace(title) == "" {
				skippedUntitled++
				continue
			}
			work = append(work, workItem{id: id, title: title})
		}
	}
	if skippedUntitled > 0 {
		log.Printf("rerankkit: precompute skipping untitled items model=%s n=%d", model, skippedUntitled)
	}
	if len(work) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, cfg.MaxConcurrentBatches)
	var tokens <-chan struct{}
	stopTokens := func() {}
	if cfg.MaxRequestsPerSecond > 0 {
		tokens, stopTokens = newTokenBucket(cfg.MaxRequestsPerSecond, cfg.MaxConcurrentBatches)
	}
	defer stopTokens()

	var (
		mu       sync.Mutex
		stored   int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for chunkStart := 0; chunkStart < len(work); chunkStart += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		chunkEnd := chunkStart + cfg.BatchSize
		if chunkEnd > len(work) {
			chunkEnd = len(work)
		}
		chunk := work[chunkStart:chunkEnd]

		sem <- struct{}{}
		wg.Add(1)
		go func(seed int64) {
			defer func() {
				<-sem
				wg.Done()
			}()
			rng := rand.New(rand.NewSource(seed))

			titles := make([]string, len(chunk))
			for i, it := range chunk {
				titles[i] = it.title
			}

			vecs, err := embedChunk(ctx, emb, titles, cfg, rng, tokens)
			if err != nil {
				if ctx.Err() != nil {
					fail(ctx.Err())
					return
				}
				log.Printf("rerankkit: precompute batch failed model=%s items=%d err=%T %v", model, len(chunk), err, err)
				return
			}

			dim := emb.Dimensions()
			if dim <= 0 && len(vecs) > 0 {
				dim = len(vecs[0])
			}
			byID := make(map[string][]float32, len(chunk))
			for i, it := range chunk {
				byID[it.id] = vecs[i]
			}
			if err := pg.UpsertItemVectors(ctx, pool, schema, model, dim, byID); err != nil {
				fail(fmt.Errorf("store batch: %w", err))
				return
			}

			mu.Lock()
			stored += len(chunk)
			mu.Unlock()
		}(time.Now().UnixNano() + int64(chunkStart))
	}
	wg.Wait()

	return stored, firstErr
}

func embedChunk(ctx context.Context, emb embedder.Embedder, titles []string, cfg Options, rng *rand.Rand, tokens <-chan struct{}) ([][]float32, error) {
	for attempt := 1; ; attempt++ {
		if tokens != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-tokens:
			}
		}

		vecs, err := emb.EmbedTexts(ctx, titles)
		if err == nil {
			if len(vecs) != len(titles) {
				return nil, fmt.Errorf("expected %d embeddings, got %d", len(titles), len(vecs))
			}
			return vecs, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		if attempt >= cfg.MaxAttempts {
			return nil, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		backoff := expBackoff(cfg.BackoffBase, attempt, cfg.BackoffMax)
		if isRateLimit(err) {
			// Rate limits back off harder than transient 5xx.
			backoff *= 2
			if backoff > cfg.BackoffMax {
				backoff = cfg.BackoffMax
			}
		}
		backoff = addJitter(rng, backoff)
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
	}
}
