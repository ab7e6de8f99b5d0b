package core

import (
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/huangsam/gitnote/core/trigger"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/metrics"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
)

// Runner serializes compactions of one repository and records every run
// in the archive store and the metrics recorder when they are present.
type Runner struct {
	compacter trigger.Compacter
	store     contract.ArchiveStore
	recorder  *metrics.Recorder
	clock     func() time.Time
	logger    *zap.Logger
	mu        *sync.Mutex
}

var _ trigger.Compacter = &Runner{} // Compile-time check

// NewRunner wraps c. A nil store or recorder disables that kind of tracking.
func NewRunner(c trigger.Compacter, store contract.ArchiveStore, recorder *metrics.Recorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		compacter: c,
		store:     store,
		recorder:  recorder,
		clock:     time.Now,
		logger:    logger,
		mu:        &sync.Mutex{},
	}
}

// For returns a Runner over c that shares r's lock, archive store and recorder.
func (r *Runner) For(c trigger.Compacter) *Runner {
	bound := *r
	bound.compacter = c
	return &bound
}

// RefName returns the archive reference for label.
func (r *Runner) RefName(label string) plumbing.ReferenceName {
	return r.compacter.RefName(label)
}

// Compact runs one compaction. Tracking failures are logged and never fail the run.
func (r *Runner) Compact(boundary, label string) (*schema.ArchivedInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.clock()
	runID, tracked := r.beginRun(label, boundary, start)

	info, err := r.compacter.Compact(boundary, label)
	if err != nil {
		end := r.clock()
		if r.recorder != nil {
			r.recorder.ObserveFailure(end.Sub(start))
		}
		if tracked {
			if ferr := r.store.FailRun(runID, end, err); ferr != nil {
				r.logger.Warn("failed to record archive failure", zap.Int64("run_id", runID), zap.Error(ferr))
			}
		}
		return nil, err
	}

	if r.recorder != nil {
		r.recorder.ObserveSuccess(info)
	}
	if tracked {
		if eerr := r.store.EndRun(runID, info); eerr != nil {
			r.logger.Warn("failed to record archive result", zap.Int64("run_id", runID), zap.Error(eerr))
		}
	}
	return info, nil
}

func (r *Runner) beginRun(label, boundary string, start time.Time) (int64, bool) {
	if r.store == nil {
		return 0, false
	}
	runID, err := r.store.BeginRun(label, boundary, start)
	if err != nil {
		r.logger.Warn("failed to begin archive run tracking", zap.String("label", label), zap.Error(err))
		return 0, false
	}
	return runID, true
}
