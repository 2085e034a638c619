package rerank

import "sort"

// RRFOptions configures reciprocal rank fusion.
type RRFOptions struct {
	// K is the stabilizer constant; higher K flattens rank differences.
	// Defaults to 60 when <= 0.
	K int

	// Weights applied to each list. Empty => all 1.0.
	Weights []float32
}

// FuseRRF fuses ranked candidate lists from multiple models into a single
// list via Reciprocal Rank Fusion:
//
//	score(item) = Σ weight_l / (K + rank_l(item))
//
// with 1-based ranks. Input lists are expected best-first; an item missing
// from a list simply contributes nothing for it. Fused scores depend only on
// ranks, not on the models' raw score scales, so the output feeds directly
// into NormalizeScores + MMR.
//
// The result is ordered by fused score descending, ties by id ascending.
func FuseRRF(lists [][]Candidate, opts RRFOptions) []Candidate {
	k := opts.K
	if k <= 0 {
		k = 60
	}
	weights := opts.Weights

	scores := make(map[string]float32)
	for li, list := range lists {
		w := float32(1.0)
		if li < len(weights) && weights[li] > 0 {
			w = weights[li]
		}
		for i, c := range list {
			if c.ID == "" {
				continue
			}
			rank := i + 1
			scores[c.ID] += w / float32(k+rank)
		}
	}

	out := make([]Candidate, 0, len(scores))
	for id, sc := range scores {
		out = append(out, Candidate{ID: id, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out
}
