package headless

import (
	"context"
	"fmt"
)

// Noop is a Renderer that always fails. It stands in when rendering is
// disabled so callers never nil-check twice.
type Noop struct{}

// Render always returns an error.
func (Noop) Render(_ context.Context, url string) (string, error) {
	return "", fmt.Errorf("headless rendering disabled (url %s)", url)
}
