// Package fetcher retrieves raw documentation pages over HTTP with
// allowlist validation, retry/backoff and content extraction.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/metrics"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent        string
	Timeout          time.Duration
	AllowedDomains   []string
	RenderedPatterns []string
}

// Fetcher implements docsync.Fetcher using a Colly collector for the
// plain path and an optional Renderer for script-dependent sources.
type Fetcher struct {
	cfg           Config
	allowlist     *Allowlist
	policy        *RetryPolicy
	renderer      docsync.Renderer
	renderMatch   []*regexp.Regexp
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher. renderer may be nil when no source needs
// client-side rendering.
func New(cfg Config, policy *RetryPolicy, renderer docsync.Renderer, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = NewRetryPolicy(0, 0, 0, 0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	// Retries revisit the same URL.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	patterns := make([]*regexp.Regexp, 0, len(cfg.RenderedPatterns))
	for _, p := range cfg.RenderedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile rendered pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &Fetcher{
		cfg:           cfg,
		allowlist:     NewAllowlist(cfg.AllowedDomains),
		policy:        policy,
		renderer:      renderer,
		renderMatch:   patterns,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// Fetch retrieves url, retrying transient failures with backoff. On
// retry exhaustion it returns an empty FetchResult with a nil error;
// callers must treat empty content as "fetch failed" and not index it.
// A non-nil error is only returned for requests that are wrong before
// any network call.
func (f *Fetcher) Fetch(ctx context.Context, url string) (docsync.FetchResult, error) {
	if _, err := f.allowlist.Check(url); err != nil {
		return docsync.FetchResult{URL: url}, err
	}

	if f.renderer != nil && f.needsRendering(url) {
		return f.fetchRendered(ctx, url), nil
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < f.policy.MaxAttempts(); attempt++ {
		result, err := f.fetchOnce(ctx, url)
		if err == nil {
			f.finishResult(&result, start)
			metrics.ObserveFetch(url, "ok", result.Duration)
			return result, nil
		}
		lastErr = err
		if !f.policy.ShouldRetry(err, attempt) {
			break
		}
		f.logger.Debug("fetch attempt failed, backing off",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if !sleepCtx(ctx, f.policy.Backoff(attempt)) {
			break
		}
	}

	f.logger.Warn("fetch failed, degrading to empty content",
		zap.String("url", url),
		zap.Error(lastErr),
	)
	metrics.ObserveFetch(url, "failed", time.Since(start))
	return docsync.FetchResult{URL: url, Duration: time.Since(start)}, nil
}

func (f *Fetcher) needsRendering(url string) bool {
	for _, re := range f.renderMatch {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// fetchRendered runs the headless escape hatch. Render failures degrade
// to empty content like any other fetch failure; the renderer has its
// own internal timeout so no retry loop is layered on top of it.
func (f *Fetcher) fetchRendered(ctx context.Context, url string) docsync.FetchResult {
	start := time.Now()
	html, err := f.renderer.Render(ctx, url)
	if err != nil {
		f.logger.Warn("rendered fetch failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveFetch(url, "render_failed", time.Since(start))
		return docsync.FetchResult{URL: url, Rendered: true, Duration: time.Since(start)}
	}
	result := docsync.FetchResult{
		URL:        url,
		StatusCode: http.StatusOK,
		Body:       []byte(html),
		Rendered:   true,
	}
	f.finishResult(&result, start)
	metrics.ObserveFetch(url, "ok", result.Duration)
	return result
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (docsync.FetchResult, error) {
	var (
		result   docsync.FetchResult
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = docsync.FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = classifyFetchError(url, r, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return docsync.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return docsync.FetchResult{}, fetchErr
		}
		if err != nil {
			return docsync.FetchResult{}, classifyFetchError(url, nil, err)
		}
		return result, nil
	}
}

// finishResult derives text and metadata from the raw body.
func (f *Fetcher) finishResult(result *docsync.FetchResult, start time.Time) {
	result.Duration = time.Since(start)
	if len(result.Body) == 0 {
		return
	}
	html := string(result.Body)
	result.Text = ExtractText(html)
	result.Metadata = ExtractMetadata(html)
}

func classifyFetchError(url string, r *colly.Response, err error) error {
	if r != nil && r.StatusCode != 0 {
		return &docsync.FetchError{
			Kind:       docsync.FetchErrHTTPStatus,
			URL:        url,
			StatusCode: r.StatusCode,
			Err:        err,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &docsync.FetchError{Kind: docsync.FetchErrTimeout, URL: url, Err: err}
	}
	return &docsync.FetchError{Kind: docsync.FetchErrNetwork, URL: url, Err: err}
}

// sleepCtx waits for d or until ctx finishes, reporting whether the
// full wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
