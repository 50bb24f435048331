// Package postgres provides the Postgres-backed catalog of projects,
// versions and documentation links.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Config controls the Postgres connection pool used by the catalog.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Catalog reads and writes catalog rows in Postgres.
type Catalog struct {
	pool pgxPool
}

// New creates a Postgres-backed Catalog using the provided config.
func New(ctx context.Context, cfg Config) (*Catalog, error) {
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
	return &Catalog{pool: pool}, nil
}

// NewWithPool constructs a Catalog from an existing pool (primarily for
// testing).
func NewWithPool(pool pgxPool) (*Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Catalog{pool: pool}, nil
}

// Ping verifies database connectivity, backing the readiness probe.
func (c *Catalog) Ping(ctx context.Context) error {
	if c == nil || c.pool == nil {
		return fmt.Errorf("catalog is not configured")
	}
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (c *Catalog) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// ListActiveProjects returns every active project.
func (c *Catalog) ListActiveProjects(ctx context.Context) ([]docsync.Project, error) {
	rows, err := c.pool.Query(ctx, `
SELECT id, slug, name, active
FROM projects
WHERE active
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}
	defer rows.Close()

	var out []docsync.Project
	for rows.Next() {
		var p docsync.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Active); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return out, nil
}

// ListActiveVersions returns a project's active versions.
func (c *Catalog) ListActiveVersions(ctx context.Context, projectID int64) ([]docsync.Version, error) {
	rows, err := c.pool.Query(ctx, `
SELECT id, project_id, name, latest, active, support_end, extended_support_end
FROM versions
WHERE project_id = $1 AND active
ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list active versions: %w", err)
	}
	defer rows.Close()

	var out []docsync.Version
	for rows.Next() {
		var v docsync.Version
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Name, &v.Latest, &v.Active, &v.SupportEnd, &v.ExtendedSupportEnd); err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate version rows: %w", err)
	}
	return out, nil
}

// ListActiveLinks returns a version's active documentation links.
func (c *Catalog) ListActiveLinks(ctx context.Context, versionID int64) ([]docsync.DocLink, error) {
	rows, err := c.pool.Query(ctx, `
SELECT id, version_id, url, kind, active, content_hash, last_fetched
FROM doc_links
WHERE version_id = $1 AND active
ORDER BY id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}
	defer rows.Close()

	var out []docsync.DocLink
	for rows.Next() {
		var (
			l    docsync.DocLink
			kind string
			hash *string
		)
		if err := rows.Scan(&l.ID, &l.VersionID, &l.URL, &kind, &l.Active, &hash, &l.LastFetched); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		l.Kind = docsync.ContentKind(kind)
		if hash != nil {
			l.ContentHash = *hash
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return out, nil
}

// DeactivateLink marks a link inactive.
func (c *Catalog) DeactivateLink(ctx context.Context, linkID int64) error {
	tag, err := c.pool.Exec(ctx, `UPDATE doc_links SET active = FALSE WHERE id = $1`, linkID)
	if err != nil {
		return fmt.Errorf("deactivate link %d: %w", linkID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link %d not found", linkID)
	}
	return nil
}

// UpsertVersion creates or updates a version keyed on (project_id, name)
// and reports whether the row was newly inserted. Existing rows keep
// their active flag; lifecycle dates and the latest flag are refreshed.
func (c *Catalog) UpsertVersion(ctx context.Context, v docsync.Version) (docsync.Version, bool, error) {
	row := c.pool.QueryRow(ctx, `
INSERT INTO versions (project_id, name, latest, active, support_end, extended_support_end)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (project_id, name) DO UPDATE SET
	latest = EXCLUDED.latest,
	support_end = EXCLUDED.support_end,
	extended_support_end = EXCLUDED.extended_support_end
RETURNING id, active, (xmax = 0) AS created`,
		v.ProjectID, v.Name, v.Latest, v.Active, v.SupportEnd, v.ExtendedSupportEnd)

	var created bool
	if err := row.Scan(&v.ID, &v.Active, &created); err != nil {
		return docsync.Version{}, false, fmt.Errorf("upsert version %q: %w", v.Name, err)
	}
	return v, created, nil
}

// UpsertProject creates or updates a project keyed on slug.
func (c *Catalog) UpsertProject(ctx context.Context, p docsync.Project) (docsync.Project, error) {
	row := c.pool.QueryRow(ctx, `
INSERT INTO projects (slug, name, active)
VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id, active`,
		p.Slug, p.Name, p.Active)

	if err := row.Scan(&p.ID, &p.Active); err != nil {
		return docsync.Project{}, fmt.Errorf("upsert project %q: %w", p.Slug, err)
	}
	return p, nil
}
