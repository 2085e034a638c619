// Package embedding holds a pretrained word-embedding table in memory and
// resolves tokens to fixed-dimension vectors.
//
// The table is loaded once (typically via LoadGloVe) and shared read-only for
// the rest of the run. Keys are lower-cased, trimmed token text; callers that
// tokenize with the same policy used to build the table get consistent hits.
package embedding

import (
	"fmt"
	"strings"
)

// Store maps tokens to fixed-dimension vectors. It is not safe for concurrent
// use while still being populated; finish Add/load before sharing.
type Store struct {
	dim  int
	vecs map[string][]float32
}

// NewStore returns an empty store for vectors of the given dimension.
func NewStore(dim int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dim must be > 0")
	}
	return &Store{dim: dim, vecs: make(map[string][]float32)}, nil
}

// Add registers a vector for a token. The token key is normalized (trimmed,
// lower-cased); the vector is copied.
func (s *Store) Add(token string, vec []float32) error {
	key := normalizeToken(token)
	if key == "" {
		return fmt.Errorf("token is required")
	}
	if len(vec) != s.dim {
		return fmt.Errorf("token %q: expected %d dimensions, got %d", token, s.dim, len(vec))
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	s.vecs[key] = cp
	return nil
}

// Lookup resolves a token to its vector. The second return is false for
// out-of-vocabulary tokens; callers skip those when averaging rather than
// substituting zeros.
func (s *Store) Lookup(token string) ([]float32, bool) {
	v, ok := s.vecs[normalizeToken(token)]
	return v, ok
}

// Dimensions returns the fixed vector dimension of the table.
func (s *Store) Dimensions() int { return s.dim }

// Len returns the vocabulary size.
func (s *Store) Len() int { return len(s.vecs) }

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
