package sqlite

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
    name            TEXT PRIMARY KEY,
    dimension       INTEGER NOT NULL,
    embedding_model TEXT NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS chunks (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    content    TEXT NOT NULL,
    meta       TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    magnitude  REAL NOT NULL,
    PRIMARY KEY(collection, id)
);`,
	`CREATE INDEX IF NOT EXISTS chunks_collection_seq ON chunks(collection, seq);`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
