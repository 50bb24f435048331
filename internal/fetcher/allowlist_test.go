package fetcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

func TestAllowlist_Check(t *testing.T) {
	t.Parallel()

	a := NewAllowlist([]string{"docs.example.org", "Example.io "})

	cases := []struct {
		name    string
		url     string
		wantErr docsync.FetchErrorKind
	}{
		{name: "exact match", url: "https://docs.example.org/guide"},
		{name: "subdomain match", url: "https://api.example.io/reference"},
		{name: "case insensitive host", url: "https://DOCS.EXAMPLE.ORG/x"},
		{name: "disallowed", url: "https://evil.example.net/", wantErr: docsync.FetchErrDisallowed},
		{name: "lookalike suffix", url: "https://notdocs.example.orgx/", wantErr: docsync.FetchErrDisallowed},
		{name: "no scheme", url: "docs.example.org/guide", wantErr: docsync.FetchErrInvalidURL},
		{name: "bad scheme", url: "ftp://docs.example.org/guide", wantErr: docsync.FetchErrInvalidURL},
		{name: "garbage", url: "://", wantErr: docsync.FetchErrInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := a.Check(tc.url)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var fe *docsync.FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.wantErr, fe.Kind)
			require.False(t, fe.Retryable())
		})
	}
}

func TestAllowlist_ErrorIsTyped(t *testing.T) {
	t.Parallel()

	a := NewAllowlist(nil)
	_, err := a.Check("https://anything.example.org/")
	var fe *docsync.FetchError
	require.True(t, errors.As(err, &fe))
}
