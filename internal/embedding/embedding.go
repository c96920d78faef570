// Package embedding holds the provider-independent parts of turning chunk
// text into vectors. Providers live in subpackages.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"kbingest/internal/domain"
)

// ErrDimensionMismatch is returned when a provider yields vectors of differing length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EmbedAll embeds texts in batches of batchSize and guarantees exactly one
// vector per text, all of the same non-zero dimension.
func EmbedAll(ctx context.Context, e domain.Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	vectors := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := e.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%s returned %d vectors for %d texts", e.Name(), len(batch), end-start)
		}
		for i, v := range batch {
			if len(v) == 0 {
				return nil, fmt.Errorf("%s returned an empty vector for text %d", e.Name(), start+i)
			}
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("%w: text %d has %d values, want %d", ErrDimensionMismatch, start+i, len(v), dim)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
