// Package upstream implements the source-of-truth feed client used to
// reconcile the project and version catalog.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Config controls the feed client.
type Config struct {
	FeedURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches the project/version feed over HTTPS.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// feedDocument is the wire shape of the upstream feed.
type feedDocument struct {
	GeneratedAt *time.Time                `json:"generated_at,omitempty"`
	Projects    []docsync.UpstreamProject `json:"projects"`
}

// New creates a feed client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("upstream.feed_url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Projects downloads and decodes the feed.
func (c *Client) Projects(ctx context.Context) ([]docsync.UpstreamProject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	c.logger.Debug("upstream feed fetched",
		zap.Int("projects", len(doc.Projects)),
		zap.Duration("duration", time.Since(start)),
	)
	return doc.Projects, nil
}
