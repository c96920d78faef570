package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kbingest/internal/domain"
	"kbingest/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "knowledge"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// errNotFound marks a 404 from Qdrant.
var errNotFound = errors.New("qdrant: not found")

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// Init creates the collection when absent. An existing collection must have
// the same vector size.
func (s *Storage) Init(ctx context.Context, dimension int, _ string) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info)
	switch {
	case errors.Is(err, errNotFound):
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
			return err
		}
	case err != nil:
		return err
	case info.Result.Config.Params.Vectors.Size != dimension:
		return fmt.Errorf("%w: collection %q has size %d, got %d",
			vectorstore.ErrDimensionMismatch, s.collection, info.Result.Config.Params.Vectors.Size, dimension)
	}
	s.dimension = dimension
	return nil
}

// Upsert writes points keyed by chunk ID; chunk IDs are UUIDs, which Qdrant
// accepts as point IDs.
func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	if err := vectorstore.CheckRecords(records, s.dimension); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     r.Chunk.ID,
			"vector": r.Vector,
			"payload": map[string]any{
				"text":        r.Chunk.Text,
				"index":       r.Chunk.Index,
				"source":      r.Chunk.Metadata.Source,
				"page":        r.Chunk.Metadata.Page,
				"total_pages": r.Chunk.Metadata.TotalPages,
				"chunk_index": r.Chunk.Metadata.ChunkIndex,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      string  `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				Text       string `json:"text"`
				Index      int    `json:"index"`
				Source     string `json:"source"`
				Page       int    `json:"page"`
				TotalPages int    `json:"total_pages"`
				ChunkIndex int    `json:"chunk_index"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := r.Payload
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:    r.ID,
				Text:  p.Text,
				Index: p.Index,
				Metadata: domain.Metadata{
					Source:     p.Source,
					Page:       p.Page,
					TotalPages: p.TotalPages,
					ChunkIndex: p.ChunkIndex,
				},
			},
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", map[string]any{"exact": true}, &resp)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	s.dimension = 0
	return nil
}

func (s *Storage) Location() string { return s.collectionURL() }

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", errNotFound, method, url)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
