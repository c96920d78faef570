//go:build arm64

package vectorstore

import "github.com/viant/vec/search"

// cosineDistance uses the NEON/SVE kernel with precomputed magnitudes.
func cosineDistance(a, b []float32, magA, magB float32) float32 {
	return search.Float32s(a).CosineDistanceWithMagnitude(b, magA, magB)
}
