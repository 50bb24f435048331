package docsync

import "time"

// SupportedVersionPolicy keeps every version whose extended support has
// not ended, plus whatever the catalog flags as latest. The exact
// retention window is a policy decision, so callers can swap in their
// own VersionPolicy.
type SupportedVersionPolicy struct {
	Clock Clock
}

// ActiveForIndexing filters versions down to those worth indexing.
func (p SupportedVersionPolicy) ActiveForIndexing(versions []Version) []Version {
	now := time.Now().UTC()
	if p.Clock != nil {
		now = p.Clock.Now()
	}
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if !v.Active {
			continue
		}
		if v.Latest {
			out = append(out, v)
			continue
		}
		if v.ExtendedSupportEnd != nil && v.ExtendedSupportEnd.Before(now) {
			continue
		}
		out = append(out, v)
	}
	return out
}
