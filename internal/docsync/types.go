// Package docsync defines core types shared across subsystems.
package docsync

import (
	"time"
)

// ContentKind declares how a documentation source publishes its content.
type ContentKind string

// Content kinds stored on documentation links.
const (
	ContentKindHTML     ContentKind = "html"
	ContentKindMarkdown ContentKind = "markdown"
)

// Project is one upstream project whose documentation is aggregated.
type Project struct {
	ID     int64  `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Version is one published release line of a project.
type Version struct {
	ID                 int64      `json:"id"`
	ProjectID          int64      `json:"project_id"`
	Name               string     `json:"name"`
	Latest             bool       `json:"latest"`
	Active             bool       `json:"active"`
	SupportEnd         *time.Time `json:"support_end,omitempty"`
	ExtendedSupportEnd *time.Time `json:"extended_support_end,omitempty"`
}

// DocLink identifies one external documentation page tracked by the service.
type DocLink struct {
	ID          int64       `json:"id"`
	VersionID   int64       `json:"version_id"`
	URL         string      `json:"url"`
	Kind        ContentKind `json:"kind"`
	Active      bool        `json:"active"`
	ContentHash string      `json:"content_hash,omitempty"`
	LastFetched *time.Time  `json:"last_fetched,omitempty"`
}

// DocumentMetadata captures what extraction derives from a fetched page.
// Absent fields stay zero-valued; extraction is best effort.
type DocumentMetadata struct {
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Canonical      string   `json:"canonical,omitempty"`
	WordCount      int      `json:"word_count"`
	LinkCount      int      `json:"link_count"`
	ReadingMinutes int      `json:"reading_minutes"`
	ContentType    string   `json:"content_type,omitempty"`
	KeyPhrases     []string `json:"key_phrases,omitempty"`
}

// IndexedContent is the stored representation of one documentation page.
// Hash always equals the hash of Markdown at the time of the last
// successful index; the store persists the whole struct atomically.
type IndexedContent struct {
	LinkID     int64            `json:"link_id"`
	Markdown   string           `json:"markdown"`
	Hash       string           `json:"hash"`
	Metadata   DocumentMetadata `json:"metadata"`
	SearchText string           `json:"search_text"`
	IndexedAt  time.Time        `json:"indexed_at"`
}

// FetchResult is what a fetch attempt produced. A result with no body
// means the fetch failed after retries were exhausted; callers must not
// index it.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Text       string
	Metadata   DocumentMetadata
	Duration   time.Duration
	Rendered   bool
}

// Empty reports whether the fetch produced no usable content.
func (r FetchResult) Empty() bool {
	return len(r.Body) == 0 && r.Text == ""
}

// ItemError records a per-document failure inside a batch.
type ItemError struct {
	LinkID  int64  `json:"link_id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// BatchStats summarizes one indexing batch.
type BatchStats struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	Errors    []ItemError   `json:"errors,omitempty"`
}

// JobState is the lifecycle state of a scheduled job.
type JobState string

// Job states tracked by the scheduler status board.
const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
	JobStateSuccess JobState = "success"
	JobStateFailed  JobState = "failed"
	JobStateSkipped JobState = "skipped"
)

// JobStatus is the in-memory status record for one named job. It is
// overwritten each run and lost on restart; jobs are idempotent and
// re-triggerable so nothing durable is needed here.
type JobStatus struct {
	Name      string         `json:"name"`
	State     JobState       `json:"state"`
	LastRun   *time.Time     `json:"last_run,omitempty"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Items     int            `json:"items"`
	Errors    int            `json:"errors"`
	LastError string         `json:"last_error,omitempty"`
	Stats     map[string]any `json:"stats,omitempty"`
}

// UpstreamVersion is one version row from a source-of-truth feed.
type UpstreamVersion struct {
	Name               string     `json:"name"`
	Latest             bool       `json:"latest"`
	SupportEnd         *time.Time `json:"support_end,omitempty"`
	ExtendedSupportEnd *time.Time `json:"extended_support_end,omitempty"`
}

// UpstreamProject is one project row from a source-of-truth feed.
type UpstreamProject struct {
	Slug     string            `json:"slug"`
	Name     string            `json:"name"`
	Versions []UpstreamVersion `json:"versions"`
}
