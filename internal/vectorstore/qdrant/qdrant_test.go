package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"kbingest/internal/domain"
	"kbingest/internal/vectorstore"
)

// fakeQdrant implements the handful of endpoints Storage uses.
type fakeQdrant struct {
	mu     sync.Mutex
	size   int
	exists bool
	points map[string]json.RawMessage
	apiKey string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = r.Header.Get("api-key")
	const base = "/collections/kb"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == base:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.size}}}},
		})
	case r.Method == http.MethodPut && r.URL.Path == base:
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists = true
		f.size = body.Vectors.Size
		f.points = map[string]json.RawMessage{}
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodDelete && r.URL.Path == base:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		f.exists = false
		f.points = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && r.URL.Path == base+"/points":
		var body struct {
			Points []struct {
				ID      string          `json:"id"`
				Payload json.RawMessage `json:"payload"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p.ID] = p.Payload
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && r.URL.Path == base+"/points/count":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(f.points)}})
	case r.Method == http.MethodPost && r.URL.Path == base+"/points/search":
		results := []map[string]any{}
		for id, payload := range f.points {
			results = append(results, map[string]any{"id": id, "score": 0.5, "payload": payload})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": results})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "kb"}), fake
}

func record(id string) domain.Record {
	return domain.Record{
		Chunk: domain.Chunk{
			ID:       id,
			Text:     "text " + id,
			Metadata: domain.Metadata{Source: "doc.pdf", Page: 2, TotalPages: 3},
		},
		Vector: []float32{1, 0, 0},
	}
}

func TestStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)
	if err := s.Init(ctx, 3, "m"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if fake.apiKey != "secret" {
		t.Fatalf("api-key header = %q", fake.apiKey)
	}
	id := "7f1b3c1e-2d1a-5c4e-9b8a-0a1b2c3d4e5f"
	if err := s.Upsert(ctx, []domain.Record{record(id)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, []domain.Record{record(id)}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
	res, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Chunk.ID != id || res[0].Chunk.Metadata.Page != 2 || res[0].Chunk.Metadata.Source != "doc.pdf" {
		t.Fatalf("unexpected results %+v", res)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("Count after Clear = %d", n)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear on missing collection: %v", err)
	}
}

func TestStorageInitRejectsOtherSize(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)
	fake.exists = true
	fake.size = 768
	fake.points = map[string]json.RawMessage{}
	if err := s.Init(ctx, 3, "m"); !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if err := s.Init(ctx, 768, "m"); err != nil {
		t.Fatalf("Init with matching size: %v", err)
	}
}

func TestStorageUpsertBeforeInit(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.Upsert(context.Background(), []domain.Record{record("x")}); err == nil {
		t.Fatal("expected error")
	}
}
