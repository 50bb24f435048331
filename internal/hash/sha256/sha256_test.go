package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum_Deterministic(t *testing.T) {
	t.Parallel()

	h := New()
	first := h.Sum("documentation body")
	second := h.Sum("documentation body")
	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestSum_SingleCharacterChange(t *testing.T) {
	t.Parallel()

	h := New()
	require.NotEqual(t, h.Sum("getting started"), h.Sum("getting startee"))
}

func TestChanged(t *testing.T) {
	t.Parallel()

	h := New()
	stored := h.Sum("v1 content")

	require.False(t, h.Changed(stored, "v1 content"))
	require.True(t, h.Changed(stored, "v2 content"))
	require.True(t, h.Changed("", "v1 content"), "absent hash is always changed")
}
