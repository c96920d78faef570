// Package service runs the ingest pipeline: load a PDF, split it into
// chunks, embed every chunk and write the vectors to a store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kbingest/internal/console"
	"kbingest/internal/domain"
	"kbingest/internal/embedding"
)

// ErrSourceNotFound is returned when the input PDF does not exist. The
// not-found message has already been printed when it is returned.
var ErrSourceNotFound = errors.New("source document not found")

// Options controls a single ingest run.
type Options struct {
	PDFPath   string
	BatchSize int
	// Reset clears the store before writing.
	Reset bool
}

// Report summarizes a completed run.
type Report struct {
	Pages     int
	Chunks    int
	Dimension int
	Model     string
	Location  string
	Elapsed   time.Duration
}

type IngestService struct {
	loader   domain.Loader
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	out      *console.Printer
	log      *slog.Logger
	opts     Options
}

func NewIngestService(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, out *console.Printer, logger *slog.Logger, opts Options) *IngestService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IngestService{loader: loader, chunker: chunker, embedder: embedder, store: store, out: out, log: logger, opts: opts}
}

// CheckSource returns ErrSourceNotFound when path does not exist, after
// printing the loading banner and the not-found message. Nothing is printed
// when the file is present.
func CheckSource(path string, out *console.Printer) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		out.Step("📄 Loading %s...", path)
		out.Error("Error: %s not found. Please add the PDF to this folder.", path)
		return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}

// Ingest runs every stage once, in order. Nothing is written to the store
// unless every chunk has been embedded.
func (s *IngestService) Ingest(ctx context.Context) (Report, error) {
	start := time.Now()
	path := s.opts.PDFPath

	if err := CheckSource(path, s.out); err != nil {
		return Report{}, err
	}

	s.out.Step("📄 Loading %s...", path)
	pages, err := s.loader.Load(ctx, path)
	if err != nil {
		return Report{}, fmt.Errorf("load pdf: %w", err)
	}
	s.out.Detail("Found %d pages.", len(pages))
	s.log.Debug("pdf loaded", "loader", s.loader.Name(), "pages", len(pages))

	chunks, err := s.chunker.Chunk(pages)
	if err != nil {
		return Report{}, fmt.Errorf("split pages: %w", err)
	}
	s.out.Detail("Created %d knowledge chunks.", len(chunks))
	if len(chunks) == 0 {
		return Report{}, fmt.Errorf("no text could be extracted from %s", path)
	}

	s.out.Step("Vectorizing and storing (this may take a moment)...")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return Report{}, fmt.Errorf("prepare embedder: %w", err)
	}
	s.log.Debug("embedding chunks", "embedder", s.embedder.Name(), "model", s.embedder.Model(), "batch_size", s.opts.BatchSize)
	vectors, err := embedding.EmbedAll(ctx, s.embedder, texts, s.opts.BatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("embed chunks: %w", err)
	}
	dim := len(vectors[0])
	if want := s.embedder.Dimension(); want != 0 && want != dim {
		return Report{}, fmt.Errorf("embed chunks: %w: %s reports %d dimensions, produced %d",
			embedding.ErrDimensionMismatch, s.embedder.Name(), want, dim)
	}

	records := make([]domain.Record, len(chunks))
	for i := range chunks {
		records[i] = domain.Record{Chunk: chunks[i], Vector: vectors[i]}
	}
	if err := s.write(ctx, records, dim); err != nil {
		return Report{}, err
	}

	rep := Report{
		Pages:     len(pages),
		Chunks:    len(chunks),
		Dimension: dim,
		Model:     s.embedder.Model(),
		Location:  s.store.Location(),
		Elapsed:   time.Since(start),
	}
	s.out.Success("Success! Knowledge Base saved to %s", rep.Location)
	s.log.Info("ingest complete", "pages", rep.Pages, "chunks", rep.Chunks, "dimension", rep.Dimension, "elapsed", rep.Elapsed)
	return rep, nil
}

func (s *IngestService) write(ctx context.Context, records []domain.Record, dim int) error {
	if s.opts.Reset {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		s.log.Info("store cleared", "location", s.store.Location())
	}
	if err := s.store.Init(ctx, dim, s.embedder.Model()); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return s.verify(ctx, records)
}

// verify checks the rows landed and that the first chunk is its own nearest
// neighbour.
func (s *IngestService) verify(ctx context.Context, records []domain.Record) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("verify store: %w", err)
	}
	if n < len(records) {
		return fmt.Errorf("verify store: %d rows stored, want at least %d", n, len(records))
	}
	hits, err := s.store.Search(ctx, records[0].Vector, 1)
	if err != nil {
		return fmt.Errorf("verify store: %w", err)
	}
	if len(hits) == 0 {
		return errors.New("verify store: search returned no rows")
	}
	s.log.Debug("store verified", "rows", n, "probe", records[0].Chunk.ID, "top_hit", hits[0].Chunk.ID, "score", hits[0].Score)
	return nil
}
