// Package memory provides an in-memory search sink for tests and local
// development.
package memory

import (
	"context"
	"sync"
)

// Sink records search text per link in memory.
type Sink struct {
	mu   sync.Mutex
	docs map[int64]string
}

// New creates an empty Sink.
func New() *Sink {
	return &Sink{docs: map[int64]string{}}
}

// Put stores the link's search text.
func (s *Sink) Put(_ context.Context, linkID int64, searchText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[linkID] = searchText
	return nil
}

// Get returns the stored search text for a link.
func (s *Sink) Get(linkID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[linkID]
	return text, ok
}
