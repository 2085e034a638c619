package rerankkit

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/feedlab-org/rerankkit/eval"
	"github.com/feedlab-org/rerankkit/rerank"
)

// SimilarityFunc scores the similarity of two items by id. Implementations
// must be symmetric; similarity.Index.Similarity satisfies this.
type SimilarityFunc func(a, b string) float32

type RerankOptions struct {
	// K is the number of items to keep per user.
	K int
	// Lambda is the relevance/diversity trade-off in [0, 1]: 1 keeps pure
	// relevance order, 0 ignores scores entirely.
	Lambda float32
	// Similarity scores candidate pairs. Required when Lambda < 1.
	Similarity SimilarityFunc
	// Parallelism bounds how many impressions rerank concurrently.
	// Defaults to GOMAXPROCS.
	Parallelism int
}

type SweepRequest struct {
	// Impressions to rerank, one per user.
	Impressions []Impression
	// Lambdas are the trade-off points to sweep, each in [0, 1]. The output
	// series keep this order.
	Lambdas []float32
	// K is the cut-off depth for reranking and for both metrics.
	K int
	// Similarity scores candidate pairs.
	Similarity SimilarityFunc
	// Parallelism bounds how many impressions rerank concurrently within one
	// lambda. Defaults to GOMAXPROCS.
	Parallelism int
}

// Evaluate scores the model ordering as given, without reranking: mean NDCG@k
// over the labeled impressions and mean pairwise diversity@k over all of
// them. Unlabeled impressions contribute to diversity only; when no
// impression is labeled the NDCG term is 0.
func Evaluate(imps []Impression, k int, sim SimilarityFunc) (ndcg, diversity float64, err error) {
	if err := validateImpressions(imps); err != nil {
		return 0, 0, err
	}
	if k <= 0 {
		return 0, 0, fmt.Errorf("k must be > 0")
	}
	if sim == nil {
		return 0, 0, fmt.Errorf("similarity function is required")
	}

	var labelLists [][]int
	idLists := make([][]string, 0, len(imps))
	for _, imp := range imps {
		idLists = append(idLists, imp.ItemIDs)
		if imp.Labels != nil {
			labelLists = append(labelLists, imp.Labels)
		}
	}
	return eval.MeanNDCGAtK(labelLists, k), eval.MeanDiversity(idLists, k, sim), nil
}

// Rerank applies MMR to every impression at a single lambda. Scores are
// min-max normalized per user first, so the trade-off weighs the same across
// users regardless of raw score scale. Results align with imps by index.
func Rerank(ctx context.Context, imps []Impression, opts RerankOptions) ([]rerank.Result, error) {
	if err := validateImpressions(imps); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return nil, fmt.Errorf("k must be > 0")
	}
	if opts.Lambda < 0 || opts.Lambda > 1 {
		return nil, fmt.Errorf("lambda must be in [0, 1]")
	}
	if opts.Similarity == nil && opts.Lambda < 1 {
		return nil, fmt.Errorf("similarity function is required when lambda < 1")
	}

	normalized := make([][]rerank.Candidate, len(imps))
	for i, imp := range imps {
		normalized[i] = rerank.NormalizeScores(impressionCandidates(imp))
	}
	return rerankAll(ctx, normalized, imps, opts.K, opts.Lambda, opts.Similarity, opts.Parallelism)
}

// Sweep reranks every impression at each lambda and reports the NDCG@k and
// diversity@k series in lambda order. Normalization happens once per
// impression up front; the output is identical regardless of Parallelism.
func Sweep(ctx context.Context, req SweepRequest) (ndcg, diversity eval.Series, err error) {
	if err := validateImpressions(req.Impressions); err != nil {
		return nil, nil, err
	}
	if req.K <= 0 {
		return nil, nil, fmt.Errorf("k must be > 0")
	}
	if len(req.Lambdas) == 0 {
		return nil, nil, fmt.Errorf("lambdas are required")
	}
	for _, l := range req.Lambdas {
		if l < 0 || l > 1 {
			return nil, nil, fmt.Errorf("lambda must be in [0, 1], got %v", l)
		}
	}
	if req.Similarity == nil {
		return nil, nil, fmt.Errorf("similarity function is required")
	}

	normalized := make([][]rerank.Candidate, len(req.Impressions))
	labels := make([]map[string]int, len(req.Impressions))
	for i, imp := range req.Impressions {
		normalized[i] = rerank.NormalizeScores(impressionCandidates(imp))
		if imp.Labels != nil {
			m := make(map[string]int, len(imp.ItemIDs))
			for j, id := range imp.ItemIDs {
				m[id] = imp.Labels[j]
			}
			labels[i] = m
		}
	}

	ndcg = make(eval.Series, 0, len(req.Lambdas))
	diversity = make(eval.Series, 0, len(req.Lambdas))
	for _, lambda := range req.Lambdas {
		results, rerr := rerankAll(ctx, normalized, req.Impressions, req.K, lambda, req.Similarity, req.Parallelism)
		if rerr != nil {
			return nil, nil, rerr
		}

		var labelLists [][]int
		idLists := make([][]string, 0, len(results))
		for i, res := range results {
			idLists = append(idLists, res.IDs)
			if labels[i] == nil {
				continue
			}
			ordered := make([]int, len(res.IDs))
			for j, id := range res.IDs {
				ordered[j] = labels[i][id]
			}
			labelLists = append(labelLists, ordered)
		}
		ndcg = append(ndcg, eval.Point{Lambda: lambda, Value: eval.MeanNDCGAtK(labelLists, req.K)})
		diversity = append(diversity, eval.Point{Lambda: lambda, Value: eval.MeanDiversity(idLists, req.K, req.Similarity)})
	}
	return ndcg, diversity, nil
}

// rerankAll runs one MMR pass per impression, bounded by parallelism. Workers
// write disjoint slots so the result order matches the input order.
func rerankAll(ctx context.Context, normalized [][]rerank.Candidate, imps []Impression, k int, lambda float32, sim SimilarityFunc, parallelism int) ([]rerank.Result, error) {
	results := make([]rerank.Result, len(imps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelismOrDefault(parallelism))
	for i := range imps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := rerank.MMR(normalized[i], k, lambda, sim)
			if err != nil {
				return fmt.Errorf("rerank user %q: %w", imps[i].UserID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func impressionCandidates(imp Impression) []rerank.Candidate {
	cands := make([]rerank.Candidate, len(imp.ItemIDs))
	for i, id := range imp.ItemIDs {
		cands[i] = rerank.Candidate{ID: id, Score: imp.Scores[i]}
	}
	return cands
}

func parallelismOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
