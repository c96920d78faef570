package memory

import (
	"context"
	"errors"
	"testing"

	"kbingest/internal/domain"
	"kbingest/internal/vectorstore"
)

func rec(id string, vec ...float32) domain.Record {
	return domain.Record{Chunk: domain.Chunk{ID: id, Text: id}, Vector: vec}
}

func TestStorageUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Init(ctx, 2, "m"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Upsert(ctx, []domain.Record{rec("x", 1, 0), rec("y", 0, 1)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, []domain.Record{rec("x", 0.8, 0.2)}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
	res, err := s.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Chunk.ID != "y" {
		t.Fatalf("unexpected results %+v", res)
	}
	if got := s.Records()[0].Vector[0]; got != 0.8 {
		t.Fatalf("record x not replaced, first value %v", got)
	}
}

func TestStorageDimensionChecks(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Upsert(ctx, []domain.Record{rec("x", 1)}); err == nil {
		t.Fatal("expected error before Init")
	}
	if err := s.Init(ctx, 2, "m"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Upsert(ctx, []domain.Record{rec("x", 1)}); !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if err := s.Init(ctx, 3, "m"); !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Init(ctx, 3, "m"); err != nil {
		t.Fatalf("Init after Clear: %v", err)
	}
}
