package indexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchText_Normalization(t *testing.T) {
	t.Parallel()

	got := SearchText("The Quick-Start guide, for  CONFIGURING   widgets!")
	require.Equal(t, "quick-start configuring widgets", got)
}

func TestSearchText_DropsShortAndStopTokens(t *testing.T) {
	t.Parallel()

	got := SearchText("it is a db and the api")
	require.Equal(t, "", got, "tokens under 3 chars and stop words are dropped")
}

func TestSearchText_KeepsHyphens(t *testing.T) {
	t.Parallel()

	got := SearchText("getting-started with spring-boot")
	require.Equal(t, "getting-started spring-boot", got)
}

func TestClassifyContent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url, title, want string
	}{
		{"https://docs.example.org/getting-started/", "", "getting-started"},
		{"https://docs.example.org/quickstart", "", "getting-started"},
		{"https://docs.example.org/learn", "Widget Tutorial", "tutorial"},
		{"https://docs.example.org/api/v2", "", "api"},
		{"https://docs.example.org/widgets", "Class Reference", "reference"},
		{"https://docs.example.org/samples/widgets", "", "sample"},
		{"https://docs.example.org/widgets", "User Guide", "guide"},
		{"https://docs.example.org/widgets", "Widgets", "documentation"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifyContent(tc.url, tc.title), "url=%s title=%s", tc.url, tc.title)
	}
}

func TestKeyPhrases(t *testing.T) {
	t.Parallel()

	text := "widget widget widget config config deploy"
	got := KeyPhrases(text, 2)
	require.Equal(t, []string{"widget", "config"}, got)

	require.Nil(t, KeyPhrases("", 5))
	require.Nil(t, KeyPhrases(text, 0))
}

func TestReadingMinutes(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, ReadingMinutes(0))
	require.Equal(t, 1, ReadingMinutes(1))
	require.Equal(t, 1, ReadingMinutes(200))
	require.Equal(t, 2, ReadingMinutes(201))
}
