package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// comprehensiveSync reconciles the catalog against the upstream
// source-of-truth feed: missing projects and versions are created and
// support/lifecycle metadata is refreshed.
func (s *Scheduler) comprehensiveSync(ctx context.Context) (jobResult, error) {
	upstream, err := s.feed.Projects(ctx)
	if err != nil {
		return jobResult{}, fmt.Errorf("list upstream projects: %w", err)
	}

	var (
		result          jobResult
		versionsCreated int
		versionsUpdated int
	)
	for _, up := range upstream {
		project, err := s.catalog.UpsertProject(ctx, docsync.Project{
			Slug:   up.Slug,
			Name:   up.Name,
			Active: true,
		})
		if err != nil {
			result.errCount++
			result.lastError = fmt.Sprintf("upsert project %s: %v", up.Slug, err)
			continue
		}
		for _, uv := range up.Versions {
			_, created, err := s.catalog.UpsertVersion(ctx, docsync.Version{
				ProjectID:          project.ID,
				Name:               uv.Name,
				Latest:             uv.Latest,
				Active:             true,
				SupportEnd:         uv.SupportEnd,
				ExtendedSupportEnd: uv.ExtendedSupportEnd,
			})
			if err != nil {
				result.errCount++
				result.lastError = fmt.Sprintf("upsert version %s/%s: %v", up.Slug, uv.Name, err)
				continue
			}
			if created {
				versionsCreated++
			} else {
				versionsUpdated++
			}
			result.items++
		}
	}

	result.stats = map[string]any{
		"projects":         len(upstream),
		"versions_created": versionsCreated,
		"versions_updated": versionsUpdated,
	}
	return result, nil
}

// dailySync indexes every active documentation link of every active
// project's policy-active versions.
func (s *Scheduler) dailySync(ctx context.Context) (jobResult, error) {
	links, err := s.collectActiveLinks(ctx)
	if err != nil {
		return jobResult{}, err
	}

	stats := s.indexer.IndexBatch(ctx, links)
	return batchJobResult(stats), nil
}

// versionDetect checks for newly published versions and, on detection,
// asynchronously triggers an indexing pass scoped to only the new
// versions.
func (s *Scheduler) versionDetect(ctx context.Context) (jobResult, error) {
	upstream, err := s.feed.Projects(ctx)
	if err != nil {
		return jobResult{}, fmt.Errorf("list upstream projects: %w", err)
	}

	var (
		result      jobResult
		newVersions []docsync.Version
	)
	for _, up := range upstream {
		project, err := s.catalog.UpsertProject(ctx, docsync.Project{
			Slug:   up.Slug,
			Name:   up.Name,
			Active: true,
		})
		if err != nil {
			result.errCount++
			result.lastError = fmt.Sprintf("upsert project %s: %v", up.Slug, err)
			continue
		}
		for _, uv := range up.Versions {
			stored, created, err := s.catalog.UpsertVersion(ctx, docsync.Version{
				ProjectID:          project.ID,
				Name:               uv.Name,
				Latest:             uv.Latest,
				Active:             true,
				SupportEnd:         uv.SupportEnd,
				ExtendedSupportEnd: uv.ExtendedSupportEnd,
			})
			if err != nil {
				result.errCount++
				result.lastError = fmt.Sprintf("upsert version %s/%s: %v", up.Slug, uv.Name, err)
				continue
			}
			result.items++
			if created {
				newVersions = append(newVersions, stored)
			}
		}
	}

	if len(newVersions) > 0 {
		s.logger.Info("new versions detected, triggering scoped indexing",
			zap.Int("versions", len(newVersions)),
		)
		go s.indexNewVersions(s.baseCtx, newVersions)
	}

	result.stats = map[string]any{
		"projects":     len(upstream),
		"new_versions": len(newVersions),
	}
	return result, nil
}

// indexNewVersions runs the scoped indexing pass spawned by version
// detection. Failures are logged only; the detection run has already
// reported its own outcome.
func (s *Scheduler) indexNewVersions(ctx context.Context, versions []docsync.Version) {
	var links []docsync.DocLink
	for _, v := range versions {
		vl, err := s.catalog.ListActiveLinks(ctx, v.ID)
		if err != nil {
			s.logger.Error("list links for new version failed",
				zap.Int64("version_id", v.ID),
				zap.Error(err),
			)
			continue
		}
		links = append(links, vl...)
	}
	if len(links) == 0 {
		return
	}
	stats := s.indexer.IndexBatch(ctx, links)
	s.logger.Info("new-version indexing pass complete",
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
}

// weeklyRefresh re-checks the hash of every active link in fixed-size
// batches, re-indexing only the changed ones.
func (s *Scheduler) weeklyRefresh(ctx context.Context) (jobResult, error) {
	links, err := s.collectActiveLinks(ctx)
	if err != nil {
		return jobResult{}, err
	}

	stats := s.indexer.UpdateBatch(ctx, links)
	return batchJobResult(stats), nil
}

// monthlyCleanup deactivates documentation links whose owning version's
// extended-support end date has passed. The version flagged latest is
// never touched regardless of its dates.
func (s *Scheduler) monthlyCleanup(ctx context.Context) (jobResult, error) {
	projects, err := s.catalog.ListActiveProjects(ctx)
	if err != nil {
		return jobResult{}, fmt.Errorf("list active projects: %w", err)
	}

	now := s.clock.Now()
	var (
		result      jobResult
		deactivated int
		versionsHit int
	)
	for _, p := range projects {
		versions, err := s.catalog.ListActiveVersions(ctx, p.ID)
		if err != nil {
			result.errCount++
			result.lastError = fmt.Sprintf("list versions for %s: %v", p.Slug, err)
			continue
		}
		for _, v := range versions {
			if v.Latest {
				continue
			}
			if v.ExtendedSupportEnd == nil || !v.ExtendedSupportEnd.Before(now) {
				continue
			}
			links, err := s.catalog.ListActiveLinks(ctx, v.ID)
			if err != nil {
				result.errCount++
				result.lastError = fmt.Sprintf("list links for %s/%s: %v", p.Slug, v.Name, err)
				continue
			}
			versionsHit++
			for _, link := range links {
				if err := s.catalog.DeactivateLink(ctx, link.ID); err != nil {
					result.errCount++
					result.lastError = fmt.Sprintf("deactivate link %d: %v", link.ID, err)
					continue
				}
				deactivated++
				result.items++
			}
		}
	}

	result.stats = map[string]any{
		"versions_past_eol": versionsHit,
		"links_deactivated": deactivated,
	}
	return result, nil
}

// collectActiveLinks walks active projects, filters versions through
// the version policy, and flattens their active documentation links.
func (s *Scheduler) collectActiveLinks(ctx context.Context) ([]docsync.DocLink, error) {
	projects, err := s.catalog.ListActiveProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}

	var links []docsync.DocLink
	for _, p := range projects {
		versions, err := s.catalog.ListActiveVersions(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list versions for %s: %w", p.Slug, err)
		}
		for _, v := range s.policy.ActiveForIndexing(versions) {
			vl, err := s.catalog.ListActiveLinks(ctx, v.ID)
			if err != nil {
				return nil, fmt.Errorf("list links for %s/%s: %w", p.Slug, v.Name, err)
			}
			links = append(links, vl...)
		}
	}
	return links, nil
}

func batchJobResult(stats docsync.BatchStats) jobResult {
	lastError := ""
	if len(stats.Errors) > 0 {
		lastError = stats.Errors[len(stats.Errors)-1].Message
	}
	return jobResult{
		items:     stats.Total,
		errCount:  stats.Failed,
		lastError: lastError,
		stats: map[string]any{
			"run_id":    stats.RunID,
			"total":     stats.Total,
			"succeeded": stats.Succeeded,
			"failed":    stats.Failed,
			"skipped":   stats.Skipped,
		},
	}
}
