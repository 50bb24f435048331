// Package scheduler triggers pipeline runs on cron schedules with
// at-most-one concurrent execution per named job, in-memory status
// tracking, and strict failure containment at the job boundary.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/config"
	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/indexer"
	"github.com/docfoundry/docfoundry/internal/metrics"
)

// Job names. Manual triggers and cron entries share these and their
// guards.
const (
	JobComprehensiveSync = "comprehensiveSync"
	JobDailySync         = "dailySync"
	JobVersionDetect     = "versionDetect"
	JobWeeklyRefresh     = "weeklyRefresh"
	JobMonthlyCleanup    = "monthlyCleanup"
)

// JobNames lists every known job in trigger order.
var JobNames = []string{
	JobComprehensiveSync,
	JobDailySync,
	JobVersionDetect,
	JobWeeklyRefresh,
	JobMonthlyCleanup,
}

// jobResult is what a job body hands back for status reporting.
type jobResult struct {
	items     int
	errCount  int
	lastError string
	stats     map[string]any
}

type jobBody func(ctx context.Context) (jobResult, error)

// Scheduler composes the catalog, upstream feed and indexer into the
// five named jobs and drives them from a cron runner.
type Scheduler struct {
	catalog docsync.Catalog
	feed    docsync.UpstreamFeed
	policy  docsync.VersionPolicy
	indexer *indexer.Indexer
	clock   docsync.Clock
	cfg     config.JobsConfig
	board   *Board
	cron    *cron.Cron
	entries map[string]cron.EntryID
	baseCtx context.Context
	logger  *zap.Logger
}

// New constructs a Scheduler. The base context bounds asynchronous
// work spawned by jobs (the version-detection indexing pass).
func New(
	baseCtx context.Context,
	catalog docsync.Catalog,
	feed docsync.UpstreamFeed,
	policy docsync.VersionPolicy,
	ix *indexer.Indexer,
	clock docsync.Clock,
	cfg config.JobsConfig,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		catalog: catalog,
		feed:    feed,
		policy:  policy,
		indexer: ix,
		clock:   clock,
		cfg:     cfg,
		board:   NewBoard(JobNames...),
		cron:    cron.New(),
		entries: map[string]cron.EntryID{},
		baseCtx: baseCtx,
		logger:  logger,
	}
}

// Board exposes the status board for the observability surface.
func (s *Scheduler) Board() *Board {
	return s.board
}

// Start registers cron entries for enabled jobs and starts the runner.
func (s *Scheduler) Start() error {
	type entry struct {
		name string
		cfg  config.JobConfig
	}
	for _, e := range []entry{
		{JobComprehensiveSync, s.cfg.ComprehensiveSync},
		{JobDailySync, s.cfg.DailySync},
		{JobVersionDetect, s.cfg.VersionDetect},
		{JobWeeklyRefresh, s.cfg.WeeklyRefresh},
		{JobMonthlyCleanup, s.cfg.MonthlyCleanup},
	} {
		if !e.cfg.Enabled {
			s.logger.Info("job disabled", zap.String("job", e.name))
			continue
		}
		name := e.name
		id, err := s.cron.AddFunc(e.cfg.Cron, func() {
			s.runJob(s.baseCtx, name)
			s.recordNextRun(name)
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", e.name, e.cfg.Cron, err)
		}
		s.entries[e.name] = id
	}

	s.cron.Start()
	for name := range s.entries {
		s.recordNextRun(name)
	}
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.entries)))
	return nil
}

// Stop halts the cron runner and returns once in-flight cron callbacks
// have completed.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger manually runs the named job, sharing the scheduled guard so
// a manual invocation can never overlap a scheduled one of the same
// job. The returned state is RUNNING-result semantics: SKIPPED means
// the guard was held.
func (s *Scheduler) Trigger(ctx context.Context, name string) (docsync.JobState, error) {
	if !s.board.Known(name) {
		return "", fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(ctx, name), nil
}

// runJob wraps a job body with the invocation protocol: enable check,
// guard claim, status transitions, failure capture and guaranteed
// guard release. Errors from the body never propagate past here.
func (s *Scheduler) runJob(ctx context.Context, name string) docsync.JobState {
	enabled, body := s.lookup(name)
	if !enabled {
		s.logger.Debug("job disabled, not running", zap.String("job", name))
		return docsync.JobStateIdle
	}

	if !s.board.TryClaim(name) {
		reason := fmt.Sprintf("%s already running, trigger skipped", name)
		s.board.MarkSkipped(name, reason)
		metrics.ObserveJobRun(name, string(docsync.JobStateSkipped), 0)
		s.logger.Info("job skipped, guard held", zap.String("job", name))
		return docsync.JobStateSkipped
	}
	defer s.board.Release(name)

	start := s.clock.Now()
	s.board.MarkRunning(name, start)
	s.logger.Info("job started", zap.String("job", name))

	result, err := s.runBody(ctx, body)
	duration := s.clock.Now().Sub(start)

	if err != nil {
		s.board.MarkFailed(name, duration, result.items, err.Error(), result.stats)
		metrics.ObserveJobRun(name, string(docsync.JobStateFailed), duration)
		s.logger.Error("job failed",
			zap.String("job", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return docsync.JobStateFailed
	}

	s.board.MarkSuccess(name, duration, result.items, result.errCount, result.lastError, result.stats)
	metrics.ObserveJobRun(name, string(docsync.JobStateSuccess), duration)
	s.logger.Info("job succeeded",
		zap.String("job", name),
		zap.Duration("duration", duration),
		zap.Int("items", result.items),
		zap.Int("errors", result.errCount),
	)
	return docsync.JobStateSuccess
}

// runBody contains panics from the job body so a bad run can never
// crash the process or block future scheduled runs.
func (s *Scheduler) runBody(ctx context.Context, body jobBody) (result jobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return body(ctx)
}

func (s *Scheduler) lookup(name string) (bool, jobBody) {
	switch name {
	case JobComprehensiveSync:
		return s.cfg.ComprehensiveSync.Enabled, s.comprehensiveSync
	case JobDailySync:
		return s.cfg.DailySync.Enabled, s.dailySync
	case JobVersionDetect:
		return s.cfg.VersionDetect.Enabled, s.versionDetect
	case JobWeeklyRefresh:
		return s.cfg.WeeklyRefresh.Enabled, s.weeklyRefresh
	case JobMonthlyCleanup:
		return s.cfg.MonthlyCleanup.Enabled, s.monthlyCleanup
	default:
		return false, nil
	}
}

func (s *Scheduler) recordNextRun(name string) {
	id, ok := s.entries[name]
	if !ok {
		return
	}
	entry := s.cron.Entry(id)
	if !entry.Next.IsZero() {
		s.board.SetNextRun(name, entry.Next)
	}
}
