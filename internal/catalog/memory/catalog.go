// Package memory provides an in-memory catalog for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Catalog implements docsync.Catalog with in-memory maps.
type Catalog struct {
	mu       sync.Mutex
	projects map[int64]docsync.Project
	versions map[int64]docsync.Version
	links    map[int64]docsync.DocLink
	nextID   int64
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		projects: map[int64]docsync.Project{},
		versions: map[int64]docsync.Version{},
		links:    map[int64]docsync.DocLink{},
	}
}

// AddProject seeds a project and returns it with an assigned ID.
func (c *Catalog) AddProject(p docsync.Project) docsync.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p.ID = c.nextID
	c.projects[p.ID] = p
	return p
}

// AddVersion seeds a version and returns it with an assigned ID.
func (c *Catalog) AddVersion(v docsync.Version) docsync.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	v.ID = c.nextID
	c.versions[v.ID] = v
	return v
}

// AddLink seeds a documentation link and returns it with an assigned ID.
func (c *Catalog) AddLink(l docsync.DocLink) docsync.DocLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	l.ID = c.nextID
	c.links[l.ID] = l
	return l
}

// Link returns the current state of a seeded link.
func (c *Catalog) Link(id int64) (docsync.DocLink, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.links[id]
	return l, ok
}

// ListActiveProjects returns active projects ordered by ID.
func (c *Catalog) ListActiveProjects(_ context.Context) ([]docsync.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []docsync.Project
	for _, p := range c.projects {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListActiveVersions returns a project's active versions ordered by ID.
func (c *Catalog) ListActiveVersions(_ context.Context, projectID int64) ([]docsync.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []docsync.Version
	for _, v := range c.versions {
		if v.ProjectID == projectID && v.Active {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListActiveLinks returns a version's active links ordered by ID.
func (c *Catalog) ListActiveLinks(_ context.Context, versionID int64) ([]docsync.DocLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []docsync.DocLink
	for _, l := range c.links {
		if l.VersionID == versionID && l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeactivateLink marks a link inactive.
func (c *Catalog) DeactivateLink(_ context.Context, linkID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.links[linkID]
	if !ok {
		return fmt.Errorf("link %d not found", linkID)
	}
	l.Active = false
	c.links[linkID] = l
	return nil
}

// UpsertVersion matches on (project, name); new names create rows.
func (c *Catalog) UpsertVersion(_ context.Context, v docsync.Version) (docsync.Version, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.versions {
		if existing.ProjectID == v.ProjectID && existing.Name == v.Name {
			v.ID = id
			v.Active = existing.Active
			c.versions[id] = v
			return v, false, nil
		}
	}
	c.nextID++
	v.ID = c.nextID
	c.versions[v.ID] = v
	return v, true, nil
}

// UpsertProject matches on slug; new slugs create rows.
func (c *Catalog) UpsertProject(_ context.Context, p docsync.Project) (docsync.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.projects {
		if existing.Slug == p.Slug {
			p.ID = id
			c.projects[id] = p
			return p, nil
		}
	}
	c.nextID++
	p.ID = c.nextID
	c.projects[p.ID] = p
	return p, nil
}
