// Package rerank re-orders scored candidate lists.
//
// The main entrypoint is MMR (Maximal Marginal Relevance), which trades
// predicted relevance against redundancy with already-selected items. FuseRRF
// combines rankings from multiple models into one candidate list that MMR can
// consume.
package rerank

import (
	"fmt"
	"math"
)

// Candidate is one scored item from an upstream ranker.
type Candidate struct {
	ID    string
	Score float32
}

// Result is a re-ranked list: item ids in selection order with the MMR score
// of each selection step.
type Result struct {
	IDs    []string
	Scores []float32
}

// NormalizeScores min-max normalizes predicted scores into [0, 1] over one
// candidate list and returns a new slice; the input is not modified. MMR
// requires normalized scores, and normalization is an explicit caller step so
// raw model scores stay available for reporting.
//
// When every score is equal the normalized value is 1 for all candidates
// (equal scores are equally maximal), so a zero range never divides by zero.
func NormalizeScores(cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	min, max := cands[0].Score, cands[0].Score
	for _, c := range cands[1:] {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}

	out := make([]Candidate, len(cands))
	copy(out, cands)
	if max == min {
		for i := range out {
			out[i].Score = 1
		}
		return out
	}
	inv := 1 / (max - min)
	for i := range out {
		out[i].Score = (out[i].Score - min) * inv
	}
	return out
}

// MMR greedily selects up to k candidates maximizing
//
//	lambda*score(i) - (1-lambda)*max_{s in selected} sim(i, s)
//
// at each step. The second term is 0 while nothing is selected, so the first
// pick is purely score-driven for lambda > 0. lambda=1 reduces to a plain
// descending sort by score; lambda=0 ignores scores and maximizes
// dissimilarity from the selected set.
//
// Scores must already be normalized to [0, 1] (see NormalizeScores); MMR does
// not renormalize. sim may be nil when lambda is exactly 1.
//
// Ties break toward the earlier candidate in input order, so for pre-sorted
// input the original rank decides. The result has min(k, len(cands)) entries
// and no duplicate ids.
func MMR(cands []Candidate, k int, lambda float32, sim func(a, b string) float32) (Result, error) {
	if k <= 0 {
		return Result{}, fmt.Errorf("k must be > 0")
	}
	if lambda < 0 || lambda > 1 {
		return Result{}, fmt.Errorf("lambda must be in [0,1]")
	}
	if len(cands) == 0 {
		return Result{}, fmt.Errorf("candidates are required")
	}
	if sim == nil && lambda < 1 {
		return Result{}, fmt.Errorf("similarity function is required when lambda < 1")
	}
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if c.ID == "" {
			return Result{}, fmt.Errorf("candidate id is required")
		}
		if _, dup := seen[c.ID]; dup {
			return Result{}, fmt.Errorf("duplicate candidate id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	if k > len(cands) {
		k = len(cands)
	}

	ids := make([]string, 0, k)
	scores := make([]float32, 0, k)
	used := make([]bool, len(cands))

	// Running max similarity of each remaining candidate to the selected set,
	// updated against only the newly selected item each step. This keeps the
	// whole rerank at O(k*n) similarity calls instead of recomputing the
	// maximum over the selected set from scratch.
	maxSim := make([]float32, len(cands))

	for len(ids) < k {
		bestIdx := -1
		best := float32(-math.MaxFloat32)
		for i, c := range cands {
			if used[i] {
				continue
			}
			s := lambda*c.Score - (1-lambda)*maxSim[i]
			if s > best {
				best = s
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		used[bestIdx] = true
		ids = append(ids, cands[bestIdx].ID)
		scores = append(scores, best)

		if lambda < 1 && len(ids) < k {
			picked := cands[bestIdx].ID
			for i, c := range cands {
				if used[i] {
					continue
				}
				if s := sim(c.ID, picked); s > maxSim[i] {
					maxSim[i] = s
				}
			}
		}
	}

	return Result{IDs: ids, Scores: scores}, nil
}
