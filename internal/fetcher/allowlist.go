package fetcher

import (
	"net/url"
	"strings"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Allowlist validates that URLs belong to the fixed set of known
// documentation domains before any network call is made.
type Allowlist struct {
	domains []string
}

// NewAllowlist builds an Allowlist from configured domains. Entries are
// lowercased; a document host matches either exactly or as a subdomain.
func NewAllowlist(domains []string) *Allowlist {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Allowlist{domains: normalized}
}

// Check parses rawURL and verifies it is fetchable. It returns a typed
// FetchError for invalid or disallowed URLs so no retry budget is
// wasted on requests that are wrong by construction.
func (a *Allowlist) Check(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &docsync.FetchError{Kind: docsync.FetchErrInvalidURL, URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &docsync.FetchError{Kind: docsync.FetchErrInvalidURL, URL: rawURL}
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return u, nil
		}
	}
	return nil, &docsync.FetchError{Kind: docsync.FetchErrDisallowed, URL: rawURL}
}
