package docsync

import (
	"context"
	"time"
)

// Fetcher retrieves raw content for a documentation URL.
//
// A nil error with an empty FetchResult means the fetch failed after
// exhausting retries; callers must treat that as "no content" and skip
// indexing. A non-nil error is reserved for requests that were wrong
// before any network call (invalid URL, disallowed domain).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Renderer fetches a page after client-side script execution. It is an
// escape hatch for specific sources, never the default path.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Converter transforms HTML into normalized markdown. Both methods
// degrade to an empty string on internal failure.
type Converter interface {
	ToMarkdown(html string) string
	ToMarkdownSelection(html, selector string) string
}

// Hasher produces content digests for change detection.
type Hasher interface {
	Sum(text string) string
	Changed(oldHash, text string) bool
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Catalog is the project/version/link catalog collaborator.
type Catalog interface {
	ListActiveProjects(ctx context.Context) ([]Project, error)
	ListActiveVersions(ctx context.Context, projectID int64) ([]Version, error)
	ListActiveLinks(ctx context.Context, versionID int64) ([]DocLink, error)
	DeactivateLink(ctx context.Context, linkID int64) error
	// UpsertVersion creates or updates a version row, returning the
	// stored row and whether it was newly created.
	UpsertVersion(ctx context.Context, v Version) (Version, bool, error)
	UpsertProject(ctx context.Context, p Project) (Project, error)
}

// ContentStore is the persistent content collaborator. Store must write
// body, hash, metadata and search text in one transaction.
type ContentStore interface {
	GetHash(ctx context.Context, linkID int64) (string, error)
	Store(ctx context.Context, content IndexedContent) error
	TouchFetched(ctx context.Context, linkID int64, at time.Time) error
}

// SearchSink consumes the normalized search representation. The
// external index owns stemming and ranking; this side only supplies
// clean input.
type SearchSink interface {
	Put(ctx context.Context, linkID int64, searchText string) error
}

// UpstreamFeed is a source-of-truth listing of projects and versions.
type UpstreamFeed interface {
	Projects(ctx context.Context) ([]UpstreamProject, error)
}

// VersionPolicy decides which catalog versions are currently eligible
// for indexing. The retention rule is deliberately pluggable.
type VersionPolicy interface {
	ActiveForIndexing(versions []Version) []Version
}
