package eval

import (
	"math"
	"sort"
)

// This package is intentionally minimal: it provides the offline ranking
// metrics the experiment reports and the series types a lambda sweep produces.

// Point is one (lambda, value) sample of a swept metric.
type Point struct {
	Lambda float32
	Value  float64
}

// Series holds a metric swept across lambda values, in sweep order.
type Series []Point

// NDCGAtK computes normalized discounted cumulative gain for a single ranked
// list. labels holds the relevance label of each position in ranked order;
// position i (1-indexed) is discounted by log2(i+1). The ideal ordering sorts
// the labels descending over the whole list before truncating to k. A list
// with no positive label scores 0.
func NDCGAtK(labels []int, k int) float64 {
	if k <= 0 || len(labels) == 0 {
		return 0.0
	}
	if k > len(labels) {
		k = len(labels)
	}

	ideal := make([]int, len(labels))
	copy(ideal, labels)
	sort.Slice(ideal, func(i, j int) bool { return ideal[i] > ideal[j] })

	idcg := dcgAtK(ideal, k)
	if idcg == 0 {
		return 0.0
	}
	return dcgAtK(labels, k) / idcg
}

func dcgAtK(labels []int, k int) float64 {
	var dcg float64
	for i := 0; i < k; i++ {
		dcg += float64(labels[i]) / math.Log2(float64(i+2))
	}
	return dcg
}

// MeanNDCGAtK averages NDCGAtK over one labeled list per user. No lists means
// 0, not NaN.
func MeanNDCGAtK(lists [][]int, k int) float64 {
	if len(lists) == 0 {
		return 0.0
	}
	var sum float64
	for _, labels := range lists {
		sum += NDCGAtK(labels, k)
	}
	return sum / float64(len(lists))
}

// DiversityAtK computes the mean pairwise dissimilarity (1 - sim) across the
// top k items of a ranked list. Fewer than two items in range scores 0: a
// single item carries no redundancy signal either way. The value is invariant
// to the order of ids within the top k.
func DiversityAtK(ids []string, k int, sim func(a, b string) float32) float64 {
	if k > len(ids) {
		k = len(ids)
	}
	if k < 2 || sim == nil {
		return 0.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			sum += 1.0 - float64(sim(ids[i], ids[j]))
			pairs++
		}
	}
	return sum / float64(pairs)
}

// MeanDiversity averages DiversityAtK over one ranked list per user. No lists
// means 0.
func MeanDiversity(lists [][]string, k int, sim func(a, b string) float32) float64 {
	if len(lists) == 0 {
		return 0.0
	}
	var sum float64
	for _, ids := range lists {
		sum += DiversityAtK(ids, k, sim)
	}
	return sum / float64(len(lists))
}

// RecallAtK computes recall@k for a single ranked list.
func RecallAtK(got []string, expected []string, k int) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	if k <= 0 {
		return 0.0
	}
	if k > len(got) {
		k = len(got)
	}

	exp := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		exp[e] = struct{}{}
	}

	hit := 0
	for i := 0; i < k; i++ {
		if _, ok := exp[got[i]]; ok {
			hit++
		}
	}

	return float64(hit) / float64(len(expected))
}

// MRR computes mean reciprocal rank for a single ranked list.
func MRR(got []string, expected []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	exp := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		exp[e] = struct{}{}
	}
	for i, g := range got {
		if _, ok := exp[g]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}
