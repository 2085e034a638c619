package normalize

import "math"

// L2NormalizeInPlace normalizes vec to unit L2 norm.
// If vec is empty or all zeros, it is left unchanged.
func L2NormalizeInPlace(vec []float32) {
	if len(vec) == 0 {
		return
	}
	var sumSq float64
	for _, v := range vec {
		f := float64(v)
		sumSq += f * f
	}
	if sumSq <= 0 {
		return
	}
	invNorm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= invNorm
	}
}

// Mean returns the elementwise mean of vectors.
// Returns nil if vectors is empty or dimensions mismatch.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil
	}
	sum := make([]float32, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
		for i := 0; i < dim; i++ {
			sum[i] += v[i]
		}
	}
	inv := float32(1.0) / float32(len(vectors))
	for i := 0; i < dim; i++ {
		sum[i] *= inv
	}
	return sum
}

// Cosine returns the cosine similarity between a and b in [-1, 1].
// Returns 0 when either vector is all zeros or the lengths differ, so callers
// never see NaN from a zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, sumA, sumB float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		sumA += fa * fa
		sumB += fb * fb
	}
	if sumA <= 0 || sumB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(sumA) * math.Sqrt(sumB)))
}
