package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func newTestFetcher(t *testing.T, attempts int) *Fetcher {
	t.Helper()
	policy := NewRetryPolicy(attempts, time.Millisecond, 2, 10*time.Millisecond)
	f, err := New(Config{
		UserAgent:      "docfoundry-test/0.1",
		Timeout:        2 * time.Second,
		AllowedDomains: []string{"127.0.0.1"},
	}, policy, nil, zap.NewNop())
	require.NoError(t, err)
	return f
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Ref</title></head><body><main><p>reference text</p></main></body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, res.Empty())
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "reference text", res.Text)
	require.Equal(t, "Ref", res.Metadata.Title)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Fail with 503 exactly maxAttempts-1 times, then succeed.
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body><main>finally up</main></body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, res.Empty())
	require.Contains(t, res.Text, "finally up")
	require.Equal(t, int32(3), calls.Load())
}

func TestFetch_ExhaustionDegradesToEmpty(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err, "exhaustion degrades, never propagates")
	require.True(t, res.Empty())
	require.Equal(t, int32(3), calls.Load())
}

func TestFetch_NoRetryOn404(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, res.Empty())
	require.Equal(t, int32(1), calls.Load(), "4xx other than 429 must not be retried")
}

func TestFetch_RetryOn429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `<html><body><main>rate limit cleared</main></body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, res.Empty())
	require.Equal(t, int32(2), calls.Load())
}

func TestFetch_DisallowedDomainFailsFast(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, 3)
	_, err := f.Fetch(context.Background(), "https://elsewhere.example.net/docs")
	var fe *docsync.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, docsync.FetchErrDisallowed, fe.Kind)
}

func TestFetch_InvalidURLFailsFast(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, 3)
	_, err := f.Fetch(context.Background(), "not a url")
	var fe *docsync.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, docsync.FetchErrInvalidURL, fe.Kind)
}

func TestFetch_RenderedPathUsesRenderer(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(3, time.Millisecond, 2, 10*time.Millisecond)
	f, err := New(Config{
		Timeout:          time.Second,
		AllowedDomains:   []string{"docs.example.org"},
		RenderedPatterns: []string{`docs\.example\.org/app/`},
	}, policy, fakeRenderer{html: `<html><body><main>rendered</main></body></html>`}, zap.NewNop())
	require.NoError(t, err)

	res, ferr := f.Fetch(context.Background(), "https://docs.example.org/app/page")
	require.NoError(t, ferr)
	require.True(t, res.Rendered)
	require.Contains(t, res.Text, "rendered")
}

func TestFetch_RenderFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(3, time.Millisecond, 2, 10*time.Millisecond)
	f, err := New(Config{
		Timeout:          time.Second,
		AllowedDomains:   []string{"docs.example.org"},
		RenderedPatterns: []string{`/app/`},
	}, policy, fakeRenderer{err: fmt.Errorf("browser crashed")}, zap.NewNop())
	require.NoError(t, err)

	res, ferr := f.Fetch(context.Background(), "https://docs.example.org/app/page")
	require.NoError(t, ferr)
	require.True(t, res.Empty())
	require.True(t, res.Rendered)
}

type fakeRenderer struct {
	html string
	err  error
}

func (r fakeRenderer) Render(context.Context, string) (string, error) {
	return r.html, r.err
}
