package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// Board holds per-job status records and mutual-exclusion guards. It is
// owned by the Scheduler instance, lives only in process memory, and is
// safe for concurrent use. Statuses are created at startup for every
// known job and overwritten each run, never deleted.
type Board struct {
	mu       sync.RWMutex
	statuses map[string]*docsync.JobStatus
	guards   map[string]*atomic.Bool
}

// NewBoard creates a Board with IDLE entries for the given job names.
func NewBoard(jobNames ...string) *Board {
	b := &Board{
		statuses: make(map[string]*docsync.JobStatus, len(jobNames)),
		guards:   make(map[string]*atomic.Bool, len(jobNames)),
	}
	for _, name := range jobNames {
		b.statuses[name] = &docsync.JobStatus{Name: name, State: docsync.JobStateIdle}
		b.guards[name] = &atomic.Bool{}
	}
	return b
}

// TryClaim atomically claims the named job's guard. A false return
// means the same-named job is already running.
func (b *Board) TryClaim(name string) bool {
	b.mu.RLock()
	guard, ok := b.guards[name]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	return guard.CompareAndSwap(false, true)
}

// Release frees the named job's guard. Safe to call on every exit path.
func (b *Board) Release(name string) {
	b.mu.RLock()
	guard, ok := b.guards[name]
	b.mu.RUnlock()
	if ok {
		guard.Store(false)
	}
}

// Known reports whether the board tracks the named job.
func (b *Board) Known(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.statuses[name]
	return ok
}

// Get returns a copy of the named job's status.
func (b *Board) Get(name string) (docsync.JobStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.statuses[name]
	if !ok {
		return docsync.JobStatus{}, false
	}
	return copyStatus(st), true
}

// All returns copies of every tracked status.
func (b *Board) All() []docsync.JobStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]docsync.JobStatus, 0, len(b.statuses))
	for _, st := range b.statuses {
		out = append(out, copyStatus(st))
	}
	return out
}

// AnyRunning reports whether any job is currently executing.
func (b *Board) AnyRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, st := range b.statuses {
		if st.State == docsync.JobStateRunning {
			return true
		}
	}
	return false
}

// MarkRunning records the start of a run.
func (b *Board) MarkRunning(name string, start time.Time) {
	b.update(name, func(st *docsync.JobStatus) {
		st.State = docsync.JobStateRunning
		st.LastRun = &start
		st.Duration = 0
		st.Items = 0
		st.Errors = 0
		st.LastError = ""
		st.Stats = nil
	})
}

// MarkSkipped records a guard-conflict skip. This is an expected
// outcome under overlapping manual and scheduled triggers, not an
// error. While the competing execution is still RUNNING it owns the
// record, so the skip is only reported to the caller.
func (b *Board) MarkSkipped(name, reason string) {
	b.update(name, func(st *docsync.JobStatus) {
		if st.State == docsync.JobStateRunning {
			return
		}
		st.State = docsync.JobStateSkipped
		st.LastError = reason
	})
}

// MarkSuccess records a completed run.
func (b *Board) MarkSuccess(name string, duration time.Duration, items, errCount int, lastError string, stats map[string]any) {
	b.update(name, func(st *docsync.JobStatus) {
		st.State = docsync.JobStateSuccess
		st.Duration = duration
		st.Items = items
		st.Errors = errCount
		st.LastError = lastError
		st.Stats = stats
	})
}

// MarkFailed records a run whose body raised an unexpected error.
func (b *Board) MarkFailed(name string, duration time.Duration, items int, message string, stats map[string]any) {
	b.update(name, func(st *docsync.JobStatus) {
		st.State = docsync.JobStateFailed
		st.Duration = duration
		st.Items = items
		st.Errors++
		st.LastError = message
		st.Stats = stats
	})
}

// SetNextRun records the next scheduled fire time.
func (b *Board) SetNextRun(name string, next time.Time) {
	b.update(name, func(st *docsync.JobStatus) {
		st.NextRun = &next
	})
}

func (b *Board) update(name string, fn func(*docsync.JobStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.statuses[name]; ok {
		fn(st)
	}
}

func copyStatus(st *docsync.JobStatus) docsync.JobStatus {
	out := *st
	if st.Stats != nil {
		out.Stats = make(map[string]any, len(st.Stats))
		for k, v := range st.Stats {
			out.Stats[k] = v
		}
	}
	return out
}
