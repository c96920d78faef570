package domain

import "context"

// Page is the extracted text of a single PDF page.
type Page struct {
	Source string
	Number int // 1-based, file order
	Total  int
	Text   string
}

// Metadata describes where a chunk came from. It is copied from the
// originating page and stored alongside the vector.
type Metadata struct {
	Source     string `json:"source"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// Chunk is a bounded span of page text, the unit of embedding and retrieval.
type Chunk struct {
	ID       string
	Text     string
	Index    int
	Metadata Metadata
}

// Record pairs a chunk with its embedding vector.
type Record struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Loader turns a document on disk into an ordered sequence of pages.
type Loader interface {
	Name() string
	Load(ctx context.Context, path string) ([]Page, error)
}

// Chunker splits pages into chunks suitable for retrieval indexing.
// Each chunk inherits the metadata of the page it was cut from.
type Chunker interface {
	Chunk(pages []Page) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Model() string
	Prepare(corpus []string) error
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int, model string) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Location() string
	Close() error
}
