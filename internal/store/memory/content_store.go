// Package memory provides an in-memory content store for tests and
// local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// ContentStore implements docsync.ContentStore with in-memory maps.
type ContentStore struct {
	mu      sync.Mutex
	content map[int64]docsync.IndexedContent
	touched map[int64]time.Time
}

// New creates an empty ContentStore.
func New() *ContentStore {
	return &ContentStore{
		content: map[int64]docsync.IndexedContent{},
		touched: map[int64]time.Time{},
	}
}

// GetHash returns the stored hash, or "" for a never-indexed link.
func (s *ContentStore) GetHash(_ context.Context, linkID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content[linkID].Hash, nil
}

// Store replaces the link's content row.
func (s *ContentStore) Store(_ context.Context, content docsync.IndexedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[content.LinkID] = content
	s.touched[content.LinkID] = content.IndexedAt
	return nil
}

// TouchFetched records the fetch timestamp without touching content.
func (s *ContentStore) TouchFetched(_ context.Context, linkID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[linkID] = at
	return nil
}

// Get returns the stored content for a link.
func (s *ContentStore) Get(linkID int64) (docsync.IndexedContent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.content[linkID]
	return c, ok
}

// LastTouched returns the most recent fetch timestamp for a link.
func (s *ContentStore) LastTouched(linkID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.touched[linkID]
	return at, ok
}
