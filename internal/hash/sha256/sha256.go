// Package sha256 provides content hashing for change detection.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements docsync.Hasher using SHA-256 hex digests. The hash
// exists purely to detect content changes, not for security.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Sum hashes the normalized text and returns a hex digest.
func (Hasher) Sum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Changed reports whether text no longer matches oldHash. An absent
// old hash always counts as changed.
func (h Hasher) Changed(oldHash, text string) bool {
	if oldHash == "" {
		return true
	}
	return h.Sum(text) != oldHash
}
