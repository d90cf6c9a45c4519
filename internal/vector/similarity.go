// Package vector provides similarity math and best-match search over embeddings.
package vector

import "math"

// cosineEpsilon keeps the denominator non-zero when either vector is all zeros.
const cosineEpsilon = 1e-8

// Comparable reports whether a and b are non-empty and of equal length.
func Comparable(a, b []float32) bool {
	return len(a) > 0 && len(a) == len(b)
}

// InnerProduct returns the inner product of two vectors, or 0 when they are not comparable.
func InnerProduct(a, b []float32) float64 {
	if !Comparable(a, b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a, b) / (|a|*|b| + 1e-8). A zero vector yields a
// similarity near zero instead of an error. Vectors that are not comparable
// score 0; callers should check Comparable first.
func CosineSimilarity(a, b []float32) float64 {
	if !Comparable(a, b) {
		return 0
	}
	return InnerProduct(a, b) / (L2Norm(a)*L2Norm(b) + cosineEpsilon)
}

// AverageEmbeddings folds next into the running mean prev. newCount is the member
// count after next was added, so newCount=2 averages prev and next equally.
// The result is a new slice; prev is not modified.
func AverageEmbeddings(prev, next []float32, newCount int) []float32 {
	if newCount < 1 {
		newCount = 1
	}
	n := float64(newCount)
	out := make([]float32, len(prev))
	for i, v := range prev {
		var x float64
		if i < len(next) {
			x = float64(next[i])
		}
		out[i] = float32((float64(v)*(n-1) + x) / n)
	}
	return out
}
