// Package sqlite persists chunks and their vectors in a SQLite file inside a
// fixed directory. Each row keeps the vector norm so cosine scores can be
// computed without re-normalizing stored vectors.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"kbingest/internal/domain"
	"kbingest/internal/vectorstore"
)

// FileName is the database file created inside the store directory.
const FileName = "knowledge.sqlite"

// Store is a directory-backed vector store.
type Store struct {
	db         *sql.DB
	dir        string
	collection string
	dimension  int
	model      string
}

// Open creates dir if needed and opens (or creates) the database in it.
func Open(ctx context.Context, dir, collection string) (*Store, error) {
	if collection == "" {
		collection = "knowledge"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, dir: dir, collection: collection}, nil
}

// Location returns the store directory.
func (s *Store) Location() string { return s.dir }

func (s *Store) Close() error { return s.db.Close() }

// Init registers the collection with its dimension and embedding model. An
// existing collection must have been written with the same dimension and model.
func (s *Store) Init(ctx context.Context, dimension int, model string) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var existingDim int
	var existingModel string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, embedding_model FROM collections WHERE name = ?`, s.collection,
	).Scan(&existingDim, &existingModel)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collections(name, dimension, embedding_model) VALUES(?, ?, ?)`,
			s.collection, dimension, model,
		); err != nil {
			return err
		}
	case err != nil:
		return err
	case existingDim != dimension:
		return fmt.Errorf("%w: collection %q holds %d-dimensional vectors, got %d (set vector_store.reset to rebuild)",
			vectorstore.ErrDimensionMismatch, s.collection, existingDim, dimension)
	case existingModel != model:
		return fmt.Errorf("collection %q was built with %s, not %s (set vector_store.reset to rebuild)",
			s.collection, existingModel, model)
	}
	s.dimension = dimension
	s.model = model
	return nil
}

// Upsert writes records in one transaction. Rows with an existing ID are
// replaced, so ingesting the same document twice does not duplicate it.
func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	if err := vectorstore.CheckRecords(records, s.dimension); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks(collection, id, seq, content, meta, embedding, magnitude)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET
    seq = excluded.seq,
    content = excluded.content,
    meta = excluded.meta,
    embedding = excluded.embedding,
    magnitude = excluded.magnitude`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if r.Chunk.ID == "" {
			return errors.New("chunk ID must be set")
		}
		meta, err := json.Marshal(r.Chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			s.collection, r.Chunk.ID, r.Chunk.Index, r.Chunk.Text, string(meta),
			encodeVector(r.Vector), float64(vectorstore.Magnitude(r.Vector)),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", r.Chunk.ID, err)
		}
	}
	return tx.Commit()
}

// Search scores every stored vector against vector by cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, want %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, content, meta, embedding, magnitude FROM chunks WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qMag := vectorstore.Magnitude(vector)
	var results []domain.SearchResult
	for rows.Next() {
		var (
			ch   domain.Chunk
			seq  int
			meta string
			blob []byte
			mag  float64
		)
		if err := rows.Scan(&ch.ID, &seq, &ch.Text, &meta, &blob, &mag); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &ch.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", ch.ID, err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(vector) {
			continue
		}
		ch.Index = seq
		results = append(results, domain.SearchResult{
			Chunk: ch,
			Score: vectorstore.Cosine(vector, vec, qMag, float32(mag)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.TopK(results, topK), nil
}

// Count returns the number of chunks stored in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// Clear drops all chunks and the collection registration.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = 0
	s.model = ""
	return nil
}

var _ domain.VectorStore = (*Store)(nil)
