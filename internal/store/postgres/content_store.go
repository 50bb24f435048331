// Package postgres provides the Postgres-backed document content store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Config controls the Postgres connection pool used by the content store.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ContentStore persists indexed document content. Content, hash,
// metadata and search text land in a single transaction so readers
// never observe a half-written document.
type ContentStore struct {
	pool pgxPool
}

// New creates a Postgres-backed ContentStore using the provided config.
func New(ctx context.Context, cfg Config) (*ContentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ContentStore{pool: pool}, nil
}

// NewWithPool constructs a ContentStore from an existing pool (primarily
// for testing).
func NewWithPool(pool pgxPool) (*ContentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ContentStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ContentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetHash returns the stored content hash for a link, or the empty
// string when the document has never been indexed.
func (s *ContentStore) GetHash(ctx context.Context, linkID int64) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `
SELECT content_hash FROM indexed_content WHERE link_id = $1`, linkID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get hash for link %d: %w", linkID, err)
	}
	return hash, nil
}

// Store upserts the document's content row and refreshes the owning
// link's hash and fetch timestamp in one transaction.
func (s *ContentStore) Store(ctx context.Context, content docsync.IndexedContent) error {
	metaJSON, err := json.Marshal(content.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin store tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO indexed_content (link_id, markdown, content_hash, metadata, search_text, indexed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (link_id) DO UPDATE SET
	markdown = EXCLUDED.markdown,
	content_hash = EXCLUDED.content_hash,
	metadata = EXCLUDED.metadata,
	search_text = EXCLUDED.search_text,
	indexed_at = EXCLUDED.indexed_at`,
		content.LinkID, content.Markdown, content.Hash, metaJSON, content.SearchText, content.IndexedAt); err != nil {
		return fmt.Errorf("upsert content for link %d: %w", content.LinkID, err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE doc_links SET content_hash = $2, last_fetched = $3 WHERE id = $1`,
		content.LinkID, content.Hash, content.IndexedAt); err != nil {
		return fmt.Errorf("update link %d hash: %w", content.LinkID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit store tx: %w", err)
	}
	return nil
}

// TouchFetched refreshes only the link's fetch timestamp, used when a
// re-fetch found the content unchanged.
func (s *ContentStore) TouchFetched(ctx context.Context, linkID int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE doc_links SET last_fetched = $2 WHERE id = $1`, linkID, at)
	if err != nil {
		return fmt.Errorf("touch link %d: %w", linkID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link %d not found", linkID)
	}
	return nil
}
