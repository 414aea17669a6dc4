// Package distance provides the public API for vector distance and
// similarity calculations. All functions use hardware-dispatched
// implementations from internal/simd when available (AVX2/AVX-512 on
// x86-64, NEON on ARM64).
package distance

import (
	"slices"

	"github.com/hupe1980/agentdb/internal/simd"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// CosineSimilarity calculates the cosine of the angle between two vectors.
// Returns a value in [-1, 1]: 1 for identical direction, 0 for orthogonal,
// -1 for opposite. Returns 0 if either vector has zero norm.
// Assumes vectors are the same length (caller's responsibility).
func CosineSimilarity(a, b []float32) float32 {
	dot := simd.Dot(a, b)
	na := simd.Dot(a, a)
	nb := simd.Dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (simd.Sqrt(na) * simd.Sqrt(nb))
}

// CosineDistance converts cosine similarity into a distance:
// 0 for identical direction, 1 for orthogonal, 2 for opposite.
// Assumes vectors are the same length (caller's responsibility).
func CosineDistance(a, b []float32) float32 {
	return 1 - CosineSimilarity(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := simd.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / simd.Sqrt(norm2)
	simd.ScaleInPlace(v, inv)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// ActiveISA returns the name of the SIMD instruction path selected at
// startup (e.g. "avx2", "neon", "generic").
func ActiveISA() string {
	return simd.ActiveISA().String()
}
