// Package similarity scores pairs of catalog items by the cosine of their
// title embeddings.
//
// An item vector is the mean of the title tokens' word embeddings;
// out-of-vocabulary tokens are skipped, and an item whose tokens are all
// unknown (or whose title is missing or empty) gets the zero vector.
// Similarity against a zero vector is 0 by definition, so degraded items
// never produce NaN.
package similarity

import (
	"fmt"
	"sync"

	"github.com/feedlab-org/rerankkit/catalog"
	"github.com/feedlab-org/rerankkit/embedding"
	"github.com/feedlab-org/rerankkit/internal/tokenize"
	"github.com/feedlab-org/rerankkit/internal/normalize"
)

// Options configures an Index computed from titles and word embeddings.
type Options struct {
	// Required.
	Catalog    catalog.Catalog
	Embeddings *embedding.Store

	// Tokenize overrides the default tokenizer. Tokens must match the key
	// policy of the embedding table.
	Tokenize func(string) []string
}

// Index caches one vector per item id for the lifetime of a run.
//
// Vectors are computed lazily, at most once per id even under concurrent
// first access, and are never invalidated; reads after the first access take
// only a shared lock. One Index is meant to be shared across all users and
// trade-off values of an evaluation.
type Index struct {
	catalog  catalog.Catalog
	emb      *embedding.Store
	tokenize func(string) []string
	dim      int

	mu   sync.RWMutex
	vecs map[string][]float32
}

// New returns an Index that derives item vectors from catalog titles.
func New(opts Options) (*Index, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Embeddings == nil {
		return nil, fmt.Errorf("embeddings are required")
	}
	tok := opts.Tokenize
	if tok == nil {
		tok = tokenize.Words
	}
	return &Index{
		catalog:  opts.Catalog,
		emb:      opts.Embeddings,
		tokenize: tok,
		dim:      opts.Embeddings.Dimensions(),
		vecs:     make(map[string][]float32),
	}, nil
}

// NewFromVectors returns an Index over precomputed item vectors (for example
// hydrated from a vector store, or produced by an embedding API). The map is
// copied; the vectors are referenced as-is. Ids absent from vecs resolve to
// the zero vector.
func NewFromVectors(dim int, vecs map[string][]float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dim must be > 0")
	}
	out := &Index{dim: dim, vecs: make(map[string][]float32, len(vecs))}
	for id, v := range vecs {
		if id == "" {
			return nil, fmt.Errorf("item id is required")
		}
		if len(v) != dim {
			return nil, fmt.Errorf("item %q: expected %d dimensions, got %d", id, dim, len(v))
		}
		out.vecs[id] = v
	}
	return out, nil
}

// Similarity returns the cosine similarity of two items in [-1, 1].
//
// It is symmetric, and reflexive for items with a non-zero vector:
// Similarity(a, a) == 1. If either item degrades to the zero vector the
// result is 0. The value is raw cosine; it is not renormalized into [0, 1].
func (x *Index) Similarity(a, b string) float32 {
	va := x.Vector(a)
	if a == b {
		if isZero(va) {
			return 0
		}
		return 1
	}
	return normalize.Cosine(va, x.Vector(b))
}

// Vector returns the cached vector for an item id, computing it on first
// access. The returned slice is shared and must not be modified.
func (x *Index) Vector(itemID string) []float32 {
	x.mu.RLock()
	v, ok := x.vecs[itemID]
	x.mu.RUnlock()
	if ok {
		return v
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if v, ok := x.vecs[itemID]; ok {
		return v
	}
	v = x.compute(itemID)
	x.vecs[itemID] = v
	return v
}

// Len returns the number of cached item vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vecs)
}

func (x *Index) compute(itemID string) []float32 {
	zero := make([]float32, x.dim)
	if x.catalog == nil || x.emb == nil {
		return zero
	}

	// A catalog miss is recoverable: the item behaves as if it had an empty
	// title.
	title, _ := x.catalog.Title(itemID)
	tokens := x.tokenize(title)
	if len(tokens) == 0 {
		return zero
	}

	matched := make([][]float32, 0, len(tokens))
	for _, tok := range tokens {
		if vec, ok := x.emb.Lookup(tok); ok {
			matched = append(matched, vec)
		}
	}
	if len(matched) == 0 {
		return zero
	}
	return normalize.Mean(matched)
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
