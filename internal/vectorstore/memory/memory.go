package memory

import (
	"context"
	"errors"
	"sync"

	"kbingest/internal/domain"
	"kbingest/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu         sync.RWMutex
	dimension  int
	model      string
	index      map[string]int
	records    []domain.Record
	magnitudes []float32
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int, model string) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return vectorstore.ErrDimensionMismatch
	}
	s.dimension = dimension
	s.model = model
	return nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	if err := vectorstore.CheckRecords(records, s.dimension); err != nil {
		return err
	}
	for _, r := range records {
		mag := vectorstore.Magnitude(r.Vector)
		if i, ok := s.index[r.Chunk.ID]; ok {
			s.records[i] = r
			s.magnitudes[i] = mag
			continue
		}
		s.index[r.Chunk.ID] = len(s.records)
		s.records = append(s.records, r)
		s.magnitudes = append(s.magnitudes, mag)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, vectorstore.ErrDimensionMismatch
	}
	qMag := vectorstore.Magnitude(vector)
	results := make([]domain.SearchResult, len(s.records))
	for i, r := range s.records {
		results[i] = domain.SearchResult{
			Chunk: r.Chunk,
			Score: vectorstore.Cosine(vector, r.Vector, qMag, s.magnitudes[i]),
		}
	}
	return vectorstore.TopK(results, topK), nil
}

// Records returns a copy of everything stored, in insertion order.
func (s *Storage) Records() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Record(nil), s.records...)
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.magnitudes = nil
	s.index = make(map[string]int)
	s.dimension = 0
	return nil
}

func (s *Storage) Location() string { return "memory" }

func (s *Storage) Close() error { return nil }
