package docsync

import "fmt"

// FetchErrorKind classifies fetch failures for retry decisions.
type FetchErrorKind string

// Fetch error kinds.
const (
	FetchErrNetwork    FetchErrorKind = "network"
	FetchErrTimeout    FetchErrorKind = "timeout"
	FetchErrHTTPStatus FetchErrorKind = "http_status"
	FetchErrInvalidURL FetchErrorKind = "invalid_url"
	FetchErrDisallowed FetchErrorKind = "disallowed_domain"
)

// FetchError describes why a fetch could not be attempted or completed.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt.
// Client-side mistakes (bad URL, disallowed domain, 4xx other than
// 429) never are.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchErrInvalidURL, FetchErrDisallowed:
		return false
	case FetchErrHTTPStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return true
	}
}

// IndexError is raised for unexpected failures during indexing. An
// empty fetch is a normal failed-item outcome, not an IndexError.
type IndexError struct {
	LinkID int64
	URL    string
	Op     string
	Err    error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index link %d (%s): %s: %v", e.LinkID, e.URL, e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }
