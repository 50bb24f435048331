// Package indexer owns the decision of whether a document's indexed
// representation needs updating and performs that update with bounded
// concurrency.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/fetcher"
	"github.com/docfoundry/docfoundry/internal/metrics"
)

// Outcome is the terminal state of one document's indexing cycle.
type Outcome string

// Per-document outcomes.
const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeIndexed   Outcome = "indexed"
)

// errEmptyFetch marks the normal "fetch returned no content" outcome.
// It is deliberately not an IndexError: empty content is an expected
// per-item failure, not an unexpected one.
var errEmptyFetch = errors.New("fetch returned empty content")

// Config controls batch indexing behavior.
type Config struct {
	BatchSize  int
	Parallel   bool
	MaxWorkers int
}

// Indexer drives the fetch/convert/hash/persist cycle per document.
type Indexer struct {
	fetcher   docsync.Fetcher
	converter docsync.Converter
	hasher    docsync.Hasher
	store     docsync.ContentStore
	search    docsync.SearchSink
	clock     docsync.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Indexer.
func New(
	fetch docsync.Fetcher,
	converter docsync.Converter,
	hasher docsync.Hasher,
	store docsync.ContentStore,
	search docsync.SearchSink,
	clock docsync.Clock,
	cfg Config,
	logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	return &Indexer{
		fetcher:   fetch,
		converter: converter,
		hasher:    hasher,
		store:     store,
		search:    search,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// IndexOne executes the full indexing cycle for a single document:
// activity check, fetch, hash comparison, and either a timestamp touch
// or an atomic content persist. Unexpected failures surface as a typed
// *docsync.IndexError.
func (ix *Indexer) IndexOne(ctx context.Context, link docsync.DocLink) (Outcome, error) {
	if !link.Active {
		return OutcomeSkipped, nil
	}
	if link.URL == "" {
		return OutcomeSkipped, nil
	}

	stored, err := ix.store.GetHash(ctx, link.ID)
	if err != nil {
		return OutcomeFailed, &docsync.IndexError{LinkID: link.ID, URL: link.URL, Op: "get stored hash", Err: err}
	}
	return ix.fetchAndPersist(ctx, link, stored)
}

// UpdateIndex is the incremental entry point: the cheap stored-hash
// check happens before any expensive conversion or metadata work. A
// document with no stored content falls through to a full IndexOne.
func (ix *Indexer) UpdateIndex(ctx context.Context, link docsync.DocLink) (Outcome, error) {
	stored, err := ix.store.GetHash(ctx, link.ID)
	if err != nil {
		return OutcomeFailed, &docsync.IndexError{LinkID: link.ID, URL: link.URL, Op: "get stored hash", Err: err}
	}
	if stored == "" {
		return ix.IndexOne(ctx, link)
	}
	if !link.Active || link.URL == "" {
		return OutcomeSkipped, nil
	}
	return ix.fetchAndPersist(ctx, link, stored)
}

func (ix *Indexer) fetchAndPersist(ctx context.Context, link docsync.DocLink, storedHash string) (Outcome, error) {
	res, err := ix.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fetch %s: %w", link.URL, err)
	}
	if res.Empty() {
		// Prior stored content stays untouched; empty data must never
		// overwrite a good index.
		return OutcomeFailed, fmt.Errorf("%w (url %s)", errEmptyFetch, link.URL)
	}

	if !ix.hasher.Changed(storedHash, res.Text) {
		if err := ix.store.TouchFetched(ctx, link.ID, ix.clock.Now()); err != nil {
			return OutcomeFailed, &docsync.IndexError{LinkID: link.ID, URL: link.URL, Op: "touch timestamp", Err: err}
		}
		return OutcomeUnchanged, nil
	}

	body := ix.buildBody(link, res)
	if body == "" {
		return OutcomeFailed, fmt.Errorf("no usable content after conversion (url %s)", link.URL)
	}

	meta := res.Metadata
	meta.ReadingMinutes = ReadingMinutes(meta.WordCount)
	meta.ContentType = ClassifyContent(link.URL, meta.Title)
	meta.KeyPhrases = KeyPhrases(res.Text, 8)

	content := docsync.IndexedContent{
		LinkID:     link.ID,
		Markdown:   body,
		Hash:       ix.hasher.Sum(res.Text),
		Metadata:   meta,
		SearchText: SearchText(res.Text),
		IndexedAt:  ix.clock.Now(),
	}
	if err := ix.store.Store(ctx, content); err != nil {
		return OutcomeFailed, &docsync.IndexError{LinkID: link.ID, URL: link.URL, Op: "store content", Err: err}
	}
	if err := ix.search.Put(ctx, link.ID, content.SearchText); err != nil {
		return OutcomeFailed, &docsync.IndexError{LinkID: link.ID, URL: link.URL, Op: "search sink", Err: err}
	}
	return OutcomeIndexed, nil
}

// buildBody produces the stored markdown. Sources that already publish
// markdown are stored verbatim; HTML sources go through main-content
// selection and conversion.
func (ix *Indexer) buildBody(link docsync.DocLink, res docsync.FetchResult) string {
	if link.Kind == docsync.ContentKindMarkdown {
		return string(res.Body)
	}
	fragment := fetcher.ExtractMainHTML(string(res.Body))
	if fragment == "" {
		return ""
	}
	return ix.converter.ToMarkdown(fragment)
}

// IndexBatch processes documents in fixed-size sub-batches, optionally
// with a bounded worker pool per sub-batch. One item's failure never
// aborts the batch; the pool is fully drained before each sub-batch
// completes, so memory use is bounded by sub-batch size, not corpus
// size.
func (ix *Indexer) IndexBatch(ctx context.Context, links []docsync.DocLink) docsync.BatchStats {
	return ix.batch(ctx, links, ix.IndexOne)
}

// UpdateBatch is IndexBatch with the incremental UpdateIndex entry
// point per document, used by the periodic content refresh.
func (ix *Indexer) UpdateBatch(ctx context.Context, links []docsync.DocLink) docsync.BatchStats {
	return ix.batch(ctx, links, ix.UpdateIndex)
}

type indexFn func(context.Context, docsync.DocLink) (Outcome, error)

func (ix *Indexer) batch(ctx context.Context, links []docsync.DocLink, fn indexFn) docsync.BatchStats {
	stats := docsync.BatchStats{
		RunID: uuid.NewString(),
		Total: len(links),
	}
	start := time.Now()

	for offset := 0; offset < len(links); offset += ix.cfg.BatchSize {
		end := offset + ix.cfg.BatchSize
		if end > len(links) {
			end = len(links)
		}
		sub := links[offset:end]

		var results []itemResult
		if ix.cfg.Parallel && ix.cfg.MaxWorkers > 1 {
			results = ix.runSubBatchParallel(ctx, sub, fn)
		} else {
			results = ix.runSubBatchSequential(ctx, sub, fn)
		}

		// Merge and release the sub-batch buffer before moving on.
		for _, r := range results {
			ix.accumulate(&stats, r)
		}

		ix.logger.Debug("sub-batch complete",
			zap.String("run_id", stats.RunID),
			zap.Int("processed", end),
			zap.Int("total", stats.Total),
		)
	}

	stats.Duration = time.Since(start)
	return stats
}

type itemResult struct {
	link    docsync.DocLink
	outcome Outcome
	err     error
}

func (ix *Indexer) runSubBatchSequential(ctx context.Context, sub []docsync.DocLink, fn indexFn) []itemResult {
	results := make([]itemResult, 0, len(sub))
	for _, link := range sub {
		results = append(results, ix.indexItem(ctx, link, fn))
	}
	return results
}

// runSubBatchParallel fans the sub-batch out to a bounded worker pool.
// Workers operate on disjoint documents and are joined before return;
// none may outlive the batch call.
func (ix *Indexer) runSubBatchParallel(ctx context.Context, sub []docsync.DocLink, fn indexFn) []itemResult {
	jobs := make(chan docsync.DocLink)
	var (
		mu      sync.Mutex
		results = make([]itemResult, 0, len(sub))
		wg      sync.WaitGroup
	)

	workers := ix.cfg.MaxWorkers
	if workers > len(sub) {
		workers = len(sub)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				metrics.IncActiveWorkers()
				r := ix.indexItem(ctx, link, fn)
				metrics.DecActiveWorkers()
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}

	for _, link := range sub {
		jobs <- link
	}
	close(jobs)
	wg.Wait()
	return results
}

// indexItem wraps IndexOne with panic containment so one bad document
// cannot take down the batch.
func (ix *Indexer) indexItem(ctx context.Context, link docsync.DocLink, fn indexFn) (result itemResult) {
	defer func() {
		if r := recover(); r != nil {
			result = itemResult{
				link:    link,
				outcome: OutcomeFailed,
				err:     fmt.Errorf("panic indexing link %d: %v", link.ID, r),
			}
		}
	}()
	outcome, err := fn(ctx, link)
	return itemResult{link: link, outcome: outcome, err: err}
}

func (ix *Indexer) accumulate(stats *docsync.BatchStats, r itemResult) {
	metrics.ObserveIndexed(string(r.outcome))
	switch r.outcome {
	case OutcomeSkipped:
		stats.Skipped++
	case OutcomeIndexed, OutcomeUnchanged:
		stats.Succeeded++
	default:
		stats.Failed++
		msg := "unknown failure"
		if r.err != nil {
			msg = r.err.Error()
		}
		stats.Errors = append(stats.Errors, docsync.ItemError{
			LinkID:  r.link.ID,
			URL:     r.link.URL,
			Message: msg,
		})
		ix.logger.Warn("document indexing failed",
			zap.Int64("link_id", r.link.ID),
			zap.String("url", r.link.URL),
			zap.Error(r.err),
		)
	}
}
