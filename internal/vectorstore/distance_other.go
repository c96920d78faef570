//go:build !arm64

package vectorstore

import "github.com/viant/vec/search"

// cosineDistance falls back to the portable kernel, which recomputes both
// magnitudes.
func cosineDistance(a, b []float32, _, _ float32) float32 {
	return search.Float32s(a).CosineDistance(b)
}
