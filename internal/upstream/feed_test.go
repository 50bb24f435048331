package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `{
  "generated_at": "2026-03-01T04:00:00Z",
  "projects": [
    {
      "slug": "pulse",
      "name": "Pulse",
      "versions": [
        {"name": "1.0", "extended_support_end": "2026-02-28T00:00:00Z"},
        {"name": "2.0", "latest": true}
      ]
    },
    {
      "slug": "beacon",
      "name": "Beacon",
      "versions": [{"name": "0.9", "latest": true}]
    }
  ]
}`

func TestProjectsDecodesFeed(t *testing.T) {
	t.Parallel()

	var gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client, err := New(Config{FeedURL: srv.URL, UserAgent: "docfoundry/1.0"}, nil)
	require.NoError(t, err)

	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "docfoundry/1.0", gotUA)

	pulse := projects[0]
	assert.Equal(t, "pulse", pulse.Slug)
	require.Len(t, pulse.Versions, 2)
	require.NotNil(t, pulse.Versions[0].ExtendedSupportEnd)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), pulse.Versions[0].ExtendedSupportEnd.UTC())
	assert.True(t, pulse.Versions[1].Latest)
	assert.Nil(t, pulse.Versions[1].ExtendedSupportEnd)
}

func TestProjectsRejectsNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(Config{FeedURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Projects(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestProjectsRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client, err := New(Config{FeedURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Projects(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed")
}

func TestProjectsHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	client, err := New(Config{FeedURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Projects(ctx)
	require.Error(t, err)
}

func TestNewRequiresFeedURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}
