package archive

import (
	"errors"
	"fmt"

	"github.com/huangsam/gitnote/core/extract"
)

// Step names a state of one compaction run.
type Step string

// Compaction states in the order a run passes through them.
const (
	StepStart               Step = "start"
	StepWorkingAreaAcquired Step = "working-area-acquired"
	StepHistoryReplayed     Step = "history-replayed"
	StepBucketed            Step = "bucketed"
	StepCommitChainBuilt    Step = "commit-chain-built"
	StepReferencePublished  Step = "reference-published"
	StepWorkingAreaReleased Step = "working-area-released"
)

// Failure kinds of a compaction run. ErrUnresolvedReference and ErrContentRead are
// shared with the extraction engine.
var (
	ErrUnresolvedReference = extract.ErrUnresolvedReference
	ErrContentRead         = extract.ErrContentRead
	ErrTreeWrite           = errors.New("tree write error")
	ErrCommitWrite         = errors.New("commit write error")
	ErrReferencePublish    = errors.New("reference publish error")
	ErrWorkingArea         = errors.New("working area error")
	ErrInvalidLabel        = errors.New("invalid archive label")
)

// Error reports a failed compaction run.
type Error struct {
	Step          Step  // last state reached before the failure
	Bucket        int   // bucket being built, -1 outside chain building
	LastCommitted int   // last bucket committed, -1 when none
	Kind          error // one of the Err* sentinels, nil when Err already carries one
	Err           error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("archive failed after step %s", e.Step)
	if e.Bucket >= 0 {
		msg += fmt.Sprintf(" at bucket %d", e.Bucket)
	}
	if e.LastCommitted >= 0 {
		msg += fmt.Sprintf(" (last committed bucket %d)", e.LastCommitted)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap exposes the failure kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// runState tracks where a run is so failures can be reported precisely.
type runState struct {
	step          Step
	bucket        int
	lastCommitted int
}

func newRunState() *runState {
	return &runState{step: StepStart, bucket: -1, lastCommitted: -1}
}

func (rs *runState) fail(kind, err error) *Error {
	return &Error{
		Step:          rs.step,
		Bucket:        rs.bucket,
		LastCommitted: rs.lastCommitted,
		Kind:          kind,
		Err:           err,
	}
}
