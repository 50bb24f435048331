package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	catalogpg "github.com/docfoundry/docfoundry/internal/catalog/postgres"
	"github.com/docfoundry/docfoundry/internal/clock/system"
	"github.com/docfoundry/docfoundry/internal/config"
	"github.com/docfoundry/docfoundry/internal/convert"
	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/fetcher"
	"github.com/docfoundry/docfoundry/internal/fetcher/headless"
	"github.com/docfoundry/docfoundry/internal/hash/sha256"
	"github.com/docfoundry/docfoundry/internal/indexer"
	"github.com/docfoundry/docfoundry/internal/logging"
	"github.com/docfoundry/docfoundry/internal/metrics"
	"github.com/docfoundry/docfoundry/internal/scheduler"
	searchpg "github.com/docfoundry/docfoundry/internal/search/postgres"
	storepg "github.com/docfoundry/docfoundry/internal/store/postgres"
	"github.com/docfoundry/docfoundry/internal/upstream"
)

// app bundles the wired service graph shared by serve and sync.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	catalog  *catalogpg.Catalog
	store    *storepg.ContentStore
	search   *searchpg.Sink
	renderer *headless.Renderer
	sched    *scheduler.Scheduler
}

// buildApp loads configuration and assembles the full pipeline. The
// base context bounds connection setup and asynchronous job work.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	catalog, err := catalogpg.New(ctx, catalogpg.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	store, err := storepg.New(ctx, storepg.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init content store: %w", err)
	}

	search, err := searchpg.New(ctx, searchpg.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		store.Close()
		catalog.Close()
		return nil, fmt.Errorf("init search sink: %w", err)
	}

	var (
		renderer docsync.Renderer
		chrome   *headless.Renderer
	)
	if cfg.Rendered.Enabled {
		chrome, err = headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Rendered.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Rendered.NavTimeoutSec) * time.Second,
			Quiescence:        time.Duration(cfg.Rendered.QuiescenceMs) * time.Millisecond,
		})
		if err != nil {
			search.Close()
			store.Close()
			catalog.Close()
			return nil, fmt.Errorf("init renderer: %w", err)
		}
		renderer = chrome
	}

	policy := fetcher.NewRetryPolicy(
		cfg.Fetch.MaxAttempts,
		time.Duration(cfg.Fetch.BackoffInitialMs)*time.Millisecond,
		cfg.Fetch.BackoffMultiplier,
		time.Duration(cfg.Fetch.BackoffMaxMs)*time.Millisecond,
	)
	fetch, err := fetcher.New(fetcher.Config{
		UserAgent:        cfg.Fetch.UserAgent,
		Timeout:          cfg.FetchTimeout(),
		AllowedDomains:   cfg.Fetch.AllowedDomains,
		RenderedPatterns: cfg.Rendered.URLPatterns,
	}, policy, renderer, logger.Named("fetcher"))
	if err != nil {
		if chrome != nil {
			chrome.Close()
		}
		search.Close()
		store.Close()
		catalog.Close()
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	clock := system.New()
	ix := indexer.New(
		fetch,
		convert.New(logger.Named("convert")),
		sha256.New(),
		store,
		search,
		clock,
		indexer.Config{
			BatchSize:  cfg.Index.BatchSize,
			Parallel:   cfg.Index.Parallel,
			MaxWorkers: cfg.Index.MaxWorkers,
		},
		logger.Named("indexer"),
	)

	feed, err := upstream.New(upstream.Config{
		FeedURL:   cfg.Upstream.FeedURL,
		Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger.Named("upstream"))
	if err != nil {
		if chrome != nil {
			chrome.Close()
		}
		search.Close()
		store.Close()
		catalog.Close()
		return nil, fmt.Errorf("init upstream feed: %w", err)
	}

	sched := scheduler.New(
		ctx,
		catalog,
		feed,
		&docsync.SupportedVersionPolicy{Clock: clock},
		ix,
		clock,
		cfg.Jobs,
		logger.Named("scheduler"),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		catalog:  catalog,
		store:    store,
		search:   search,
		renderer: chrome,
		sched:    sched,
	}, nil
}

// Close releases every held resource in reverse wiring order.
func (a *app) Close() {
	if a.renderer != nil {
		a.renderer.Close()
	}
	a.search.Close()
	a.store.Close()
	a.catalog.Close()
	_ = a.logger.Sync()
}
