// Package vectorstore holds helpers shared by the store implementations.
package vectorstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/viant/vec/search"

	"kbingest/internal/domain"
)

// ErrDimensionMismatch is returned when a vector does not match the
// collection's dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// Cosine returns the cosine similarity of a and b given their magnitudes.
// Zero-magnitude vectors and vectors of different length score 0.
func Cosine(a, b []float32, magA, magB float32) float64 {
	if magA == 0 || magB == 0 || len(a) != len(b) {
		return 0
	}
	return float64(1 - cosineDistance(a, b, magA, magB))
}

// CheckRecords verifies every record carries a vector of the given dimension.
func CheckRecords(records []domain.Record, dimension int) error {
	for i, r := range records {
		if len(r.Vector) != dimension {
			return fmt.Errorf("%w: record %d (%s) has %d values, want %d", ErrDimensionMismatch, i, r.Chunk.ID, len(r.Vector), dimension)
		}
	}
	return nil
}

// TopK sorts results by descending score and truncates to k (5 when k <= 0).
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	if k <= 0 {
		k = 5
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results
}
