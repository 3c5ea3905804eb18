// Package storage provides the SQLite metadata artifact persisted in
// parallel with the vector index blob.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kotaehq/kotae/internal/models"
)

// MetaFileName is the metadata artifact file name under the storage root.
const MetaFileName = "metadata.db"

// MetaPath returns the metadata artifact path for a storage root.
func MetaPath(root string) string {
	return filepath.Join(root, MetaFileName)
}

// MetaStore persists chunk metadata in index-position order. Position i
// corresponds to vector i of the index blob; the two artifacts are
// written together on rebuild and loaded together on cache miss.
type MetaStore struct {
	db *sql.DB
}

// NewMetaStore opens or creates the metadata database under root and
// initializes the schema. The root directory is created if needed.
func NewMetaStore(root string) (*MetaStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	db, err := sql.Open("sqlite3", MetaPath(root))
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &MetaStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunk_meta (
		position INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		section_title TEXT NOT NULL,
		url TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		doc_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generation (
		id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		chunks INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Replace atomically swaps the stored metadata for a new generation.
// The previous generation's rows are dropped in the same transaction.
func (s *MetaStore) Replace(ctx context.Context, generation string, metas []*models.ChunkMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_meta"); err != nil {
		return fmt.Errorf("clear chunk metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM generation"); err != nil {
		return fmt.Errorf("clear generation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunk_meta (position, text, section_title, url, chunk_index, doc_id)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range metas {
		if _, err := stmt.ExecContext(ctx, i, m.Text, m.SectionTitle, m.URL, m.ChunkIndex, m.DocID); err != nil {
			return fmt.Errorf("insert metadata %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO generation (id, created_at, chunks) VALUES (?, ?, ?)",
		generation, time.Now().UTC(), len(metas)); err != nil {
		return fmt.Errorf("record generation: %w", err)
	}

	return tx.Commit()
}

// LoadAll returns all chunk metadata ordered by index position.
func (s *MetaStore) LoadAll(ctx context.Context) ([]*models.ChunkMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, section_title, url, chunk_index, doc_id
		 FROM chunk_meta ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query chunk metadata: %w", err)
	}
	defer rows.Close()

	var metas []*models.ChunkMeta
	for rows.Next() {
		var m models.ChunkMeta
		if err := rows.Scan(&m.Text, &m.SectionTitle, &m.URL, &m.ChunkIndex, &m.DocID); err != nil {
			return nil, fmt.Errorf("scan chunk metadata: %w", err)
		}
		metas = append(metas, &m)
	}
	return metas, rows.Err()
}

// Generation returns the current generation ID and its creation time.
// Returns empty values without error when no generation has been written.
func (s *MetaStore) Generation(ctx context.Context) (string, time.Time, error) {
	var id string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, "SELECT id, created_at FROM generation").Scan(&id, &createdAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return id, createdAt, nil
}

// Count returns the number of stored metadata entries.
func (s *MetaStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_meta").Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *MetaStore) Close() error {
	return s.db.Close()
}
