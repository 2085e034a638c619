package rerank

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

// simFromMatrix builds a symmetric similarity function over explicit pairs.
// Unlisted pairs score 0.
func simFromMatrix(pairs map[[2]string]float32) func(a, b string) float32 {
	return func(a, b string) float32 {
		if a == b {
			return 1
		}
		if s, ok := pairs[[2]string{a, b}]; ok {
			return s
		}
		return pairs[[2]string{b, a}]
	}
}

func fixtureSim() func(a, b string) float32 {
	return simFromMatrix(map[[2]string]float32{
		{"A", "B"}: 0.95,
		{"A", "C"}: 0.1,
		{"A", "D"}: 0.2,
		{"B", "C"}: 0.15,
		{"B", "D"}: 0.25,
		{"C", "D"}: 0.9,
	})
}

func fixtureCands() []Candidate {
	return []Candidate{
		{ID: "A", Score: 1.0},
		{ID: "B", Score: 0.9},
		{ID: "C", Score: 0.1},
		{ID: "D", Score: 0.0},
	}
}

func TestMMR_Validation(t *testing.T) {
	cands := fixtureCands()
	sim := fixtureSim()

	if _, err := MMR(cands, 0, 0.5, sim); err == nil {
		t.Fatalf("expected error for k=0")
	}
	if _, err := MMR(cands, -1, 0.5, sim); err == nil {
		t.Fatalf("expected error for negative k")
	}
	if _, err := MMR(cands, 2, -0.1, sim); err == nil {
		t.Fatalf("expected error for lambda < 0")
	}
	if _, err := MMR(cands, 2, 1.1, sim); err == nil {
		t.Fatalf("expected error for lambda > 1")
	}
	if _, err := MMR(nil, 2, 0.5, sim); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
	if _, err := MMR(cands, 2, 0.5, nil); err == nil {
		t.Fatalf("expected error for nil sim with lambda < 1")
	}
	if _, err := MMR([]Candidate{{ID: "A", Score: 1}, {ID: "A", Score: 0}}, 2, 0.5, sim); err == nil {
		t.Fatalf("expected error for duplicate id")
	}
	if _, err := MMR([]Candidate{{ID: "", Score: 1}}, 1, 0.5, sim); err == nil {
		t.Fatalf("expected error for empty id")
	}
	// Pure relevance sort needs no similarity function.
	if _, err := MMR(cands, 2, 1, nil); err != nil {
		t.Fatalf("lambda=1 with nil sim: %v", err)
	}
}

func TestMMR_LambdaOneIsScoreSort(t *testing.T) {
	// Deliberately unsorted input.
	cands := []Candidate{
		{ID: "C", Score: 0.1},
		{ID: "A", Score: 1.0},
		{ID: "D", Score: 0.0},
		{ID: "B", Score: 0.9},
	}
	res, err := MMR(cands, 4, 1, fixtureSim())
	if err != nil {
		t.Fatalf("MMR: %v", err)
	}
	if want := []string{"A", "B", "C", "D"}; !reflect.DeepEqual(res.IDs, want) {
		t.Fatalf("IDs = %v, want %v", res.IDs, want)
	}
	for i, s := range res.Scores {
		if i > 0 && s > res.Scores[i-1] {
			t.Fatalf("scores not descending: %v", res.Scores)
		}
	}
}

func TestMMR_TieBreakInputOrder(t *testing.T) {
	cands := []Candidate{
		{ID: "X", Score: 0.5},
		{ID: "Y", Score: 0.5},
		{ID: "Z", Score: 0.5},
	}
	// All scores and all pairwise similarities equal: every step ties, so the
	// output must follow input order exactly.
	flat := func(a, b string) float32 { return 0.3 }
	res, err := MMR(cands, 3, 0.5, flat)
	if err != nil {
		t.Fatalf("MMR: %v", err)
	}
	if want := []string{"X", "Y", "Z"}; !reflect.DeepEqual(res.IDs, want) {
		t.Fatalf("IDs = %v, want %v", res.IDs, want)
	}
}

func TestMMR_LambdaZeroMaximizesDiversity(t *testing.T) {
	res, err := MMR(fixtureCands(), 3, 0, fixtureSim())
	if err != nil {
		t.Fatalf("MMR: %v", err)
	}
	// First pick ties at zero penalty -> input order -> A. Then C is the
	// least similar to A (0.1 vs B's 0.95, D's 0.2), then D (0.9) edges B
	// (0.95). Scores are ignored completely: C and D outrank the
	// higher-scored B.
	if want := []string{"A", "C", "D"}; !reflect.DeepEqual(res.IDs, want) {
		t.Fatalf("IDs = %v, want %v", res.IDs, want)
	}
}

func TestMMR_MidLambdaTradesOff(t *testing.T) {
	res, err := MMR(fixtureCands(), 3, 0.5, fixtureSim())
	if err != nil {
		t.Fatalf("MMR: %v", err)
	}
	// A first (top score), then C (B is nearly a duplicate of A), then B.
	if want := []string{"A", "C", "B"}; !reflect.DeepEqual(res.IDs, want) {
		t.Fatalf("IDs = %v, want %v", res.IDs, want)
	}
}

func TestMMR_LengthAndUniqueness(t *testing.T) {
	cands := fixtureCands()
	sim := fixtureSim()

	for _, k := range []int{1, 2, 3, 4, 10} {
		res, err := MMR(cands, k, 0.5, sim)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		want := k
		if want > len(cands) {
			want = len(cands)
		}
		if len(res.IDs) != want || len(res.Scores) != want {
			t.Fatalf("k=%d: got %d ids %d scores, want %d", k, len(res.IDs), len(res.Scores), want)
		}
		seen := make(map[string]struct{})
		for _, id := range res.IDs {
			if _, dup := seen[id]; dup {
				t.Fatalf("k=%d: duplicate id %q", k, id)
			}
			seen[id] = struct{}{}
		}
	}
}

func TestMMR_FirstStepScore(t *testing.T) {
	res, err := MMR(fixtureCands(), 2, 0.7, fixtureSim())
	if err != nil {
		t.Fatalf("MMR: %v", err)
	}
	// No diversity penalty on the first pick.
	if math.Abs(float64(res.Scores[0])-0.7) > 1e-6 {
		t.Fatalf("first score = %v, want 0.7", res.Scores[0])
	}
}

// naiveMMR recomputes the max-similarity term over the whole selected set at
// every step. It is the straightforward O(k^2*n) reference the incremental
// implementation must match exactly.
func naiveMMR(cands []Candidate, k int, lambda float32, sim func(a, b string) float32) Result {
	if k > len(cands) {
		k = len(cands)
	}
	var res Result
	used := make([]bool, len(cands))
	for len(res.IDs) < k {
		bestIdx := -1
		best := float32(-math.MaxFloat32)
		for i, c := range cands {
			if used[i] {
				continue
			}
			maxSim := float32(0)
			for _, sel := range res.IDs {
				if s := sim(c.ID, sel); s > maxSim {
					maxSim = s
				}
			}
			s := lambda*c.Score - (1-lambda)*maxSim
			if s > best {
				best = s
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		res.IDs = append(res.IDs, cands[bestIdx].ID)
		res.Scores = append(res.Scores, best)
	}
	return res
}

func TestMMR_MatchesNaiveReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	pairs := make(map[[2]string]float32)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			pairs[[2]string{ids[i], ids[j]}] = rng.Float32()
		}
	}
	sim := simFromMatrix(pairs)

	for trial := 0; trial < 20; trial++ {
		cands := make([]Candidate, len(ids))
		for i, id := range ids {
			cands[i] = Candidate{ID: id, Score: rng.Float32()}
		}
		cands = NormalizeScores(cands)

		for _, lambda := range []float32{0, 0.25, 0.5, 0.75, 1} {
			for _, k := range []int{1, 3, 5, len(ids)} {
				got, err := MMR(cands, k, lambda, sim)
				if err != nil {
					t.Fatalf("trial=%d lambda=%v k=%d: %v", trial, lambda, k, err)
				}
				want := naiveMMR(cands, k, lambda, sim)
				if !reflect.DeepEqual(got.IDs, want.IDs) {
					t.Fatalf("trial=%d lambda=%v k=%d: ids %v, want %v", trial, lambda, k, got.IDs, want.IDs)
				}
				if !reflect.DeepEqual(got.Scores, want.Scores) {
					t.Fatalf("trial=%d lambda=%v k=%d: scores %v, want %v", trial, lambda, k, got.Scores, want.Scores)
				}
			}
		}
	}
}

func TestNormalizeScores(t *testing.T) {
	in := []Candidate{
		{ID: "A", Score: 2},
		{ID: "B", Score: 6},
		{ID: "C", Score: 4},
	}
	out := NormalizeScores(in)

	if in[0].Score != 2 {
		t.Fatalf("input mutated: %v", in)
	}
	if out[0].Score != 0 || out[1].Score != 1 {
		t.Fatalf("min/max not mapped to 0/1: %v", out)
	}
	if math.Abs(float64(out[2].Score)-0.5) > 1e-6 {
		t.Fatalf("mid score = %v, want 0.5", out[2].Score)
	}
}

func TestNormalizeScores_ZeroRange(t *testing.T) {
	out := NormalizeScores([]Candidate{
		{ID: "A", Score: 3},
		{ID: "B", Score: 3},
	})
	for _, c := range out {
		if c.Score != 1 {
			t.Fatalf("equal scores should normalize to 1, got %v", out)
		}
	}
}

func TestNormalizeScores_Empty(t *testing.T) {
	if out := NormalizeScores(nil); out != nil {
		t.Fatalf("got %v, want nil", out)
	}
}
