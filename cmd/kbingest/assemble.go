package main

import (
	"context"
	"fmt"
	"time"

	"kbingest/internal/chunker"
	"kbingest/internal/config"
	"kbingest/internal/domain"
	"kbingest/internal/embedding/gemini"
	"kbingest/internal/embedding/openai"
	"kbingest/internal/embedding/tfidf"
	"kbingest/internal/loader"
	"kbingest/internal/vectorstore/memory"
	"kbingest/internal/vectorstore/qdrant"
	"kbingest/internal/vectorstore/sqlite"
)

type pipeline struct {
	loader   domain.Loader
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
}

// assemble builds each component named in cfg. The store is opened last so a
// bad loader, chunker or embedder setting never touches the store directory.
func assemble(ctx context.Context, cfg *config.AppConfig) (*pipeline, error) {
	var p pipeline

	switch cfg.Loader.Type {
	case "native", "":
		p.loader = loader.NewNativeLoader()
	case "pdftotext":
		p.loader = loader.NewPdftotextLoader()
	default:
		return nil, fmt.Errorf("unknown loader: %s", cfg.Loader.Type)
	}

	switch cfg.Chunker.Type {
	case "recursive", "":
		ch, err := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, cfg.Chunker.Separators)
		if err != nil {
			return nil, err
		}
		p.chunker = ch
	case "sentence":
		p.chunker = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	switch cfg.Embedder.Type {
	case "gemini", "":
		g := cfg.Embedder.Gemini
		if g == nil {
			g = &config.GeminiEmbedderConfig{}
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKeyEnv: g.APIKeyEnv,
			Model:     g.Model,
			TaskType:  g.TaskType,
			BaseURL:   g.BaseURL,
			BatchSize: g.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder init failed: %w", err)
		}
		p.embedder = client
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		p.embedder = client
	case "tfidf":
		p.embedder = tfidf.NewEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	switch cfg.VectorStore.Type {
	case "sqlite", "":
		st, err := sqlite.Open(ctx, cfg.VectorStore.Dir, cfg.VectorStore.Collection)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		p.store = st
	case "memory":
		p.store = memory.NewStorage()
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		collection := q.Collection
		if collection == "" {
			collection = cfg.VectorStore.Collection
		}
		p.store = qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	return &p, nil
}

// batchSize is the number of texts sent per embedding request.
func batchSize(cfg *config.AppConfig) int {
	switch cfg.Embedder.Type {
	case "gemini", "":
		if cfg.Embedder.Gemini != nil {
			return cfg.Embedder.Gemini.BatchSize
		}
	case "openai":
		if cfg.Embedder.OpenAI != nil {
			return cfg.Embedder.OpenAI.BatchSize
		}
	}
	return 0
}
