package core

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// ProgressReporter accumulates the outcome of one run and notifies a
// callback after every change. It moves through idle, parsing, processing
// and then done or failed.
type ProgressReporter struct {
	mu         sync.Mutex
	progress   Progress
	headers    []string
	failedRows []FailedRow
	warnings   []string
	created    map[Kind]int
	startedAt  time.Time
	callback   ProgressCallback
}

// NewProgressReporter returns an idle reporter. callback may be nil.
func NewProgressReporter(runID, fileName string, callback ProgressCallback) *ProgressReporter {
	return &ProgressReporter{
		progress: Progress{
			RunID:    runID,
			FileName: fileName,
			Phase:    PhaseIdle,
			Errors:   []string{},
		},
		created:   make(map[Kind]int),
		startedAt: time.Now(),
		callback:  callback,
	}
}

// Parsing marks the start of input parsing.
func (r *ProgressReporter) Parsing() {
	r.update(func(p *Progress) {
		p.Phase = PhaseParsing
	})
}

// Begin fixes the row total and enters the processing phase.
func (r *ProgressReporter) Begin(total int, headers []string) {
	r.mu.Lock()
	r.headers = slices.Clone(headers)
	r.mu.Unlock()
	r.update(func(p *Progress) {
		p.Phase = PhaseProcessing
		p.Total = total
	})
}

// RecordSuccess counts a committed row.
func (r *ProgressReporter) RecordSuccess() {
	r.update(func(p *Progress) {
		p.Success++
	})
}

// RecordFailure counts a failed row and appends "Row <line>: <reason>".
func (r *ProgressReporter) RecordFailure(row FailedRow) {
	r.mu.Lock()
	r.failedRows = append(r.failedRows, row)
	r.mu.Unlock()
	r.update(func(p *Progress) {
		p.Failed++
		p.Errors = append(p.Errors, fmt.Sprintf("Row %d: %s", row.Line, row.Reason))
	})
}

// Warn adds report warnings. It does not notify the callback.
func (r *ProgressReporter) Warn(msgs ...string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, msgs...)
	r.mu.Unlock()
}

// RecordCreated counts an entity created during the run. It does not
// notify the callback.
func (r *ProgressReporter) RecordCreated(kind Kind) {
	r.mu.Lock()
	r.created[kind]++
	r.mu.Unlock()
}

// Fail ends the run with a run-level error.
func (r *ProgressReporter) Fail(err error) *Result {
	r.update(func(p *Progress) {
		p.Phase = PhaseFailed
		p.Error = err.Error()
	})
	return r.Result()
}

// Finish ends the run normally.
func (r *ProgressReporter) Finish() *Result {
	r.update(func(p *Progress) {
		p.Phase = PhaseDone
	})
	return r.Result()
}

// Snapshot returns a copy of the current progress.
func (r *ProgressReporter) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Result builds the run report from the current state.
func (r *ProgressReporter) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.snapshotLocked()
	return &Result{
		RunID:      p.RunID,
		FileName:   p.FileName,
		Phase:      p.Phase,
		Headers:    slices.Clone(r.headers),
		Total:      p.Total,
		Success:    p.Success,
		Failed:     p.Failed,
		Errors:     p.Errors,
		FailedRows: slices.Clone(r.failedRows),
		Warnings:   slices.Clone(r.warnings),
		Created:    maps.Clone(r.created),
		StartedAt:  r.startedAt,
		Duration:   time.Since(r.startedAt),
		Error:      p.Error,
	}
}

func (r *ProgressReporter) snapshotLocked() Progress {
	p := r.progress
	p.Errors = slices.Clone(r.progress.Errors)
	if p.Errors == nil {
		p.Errors = []string{}
	}
	return p
}

// update applies fn and invokes the callback with the resulting snapshot
// outside the lock.
func (r *ProgressReporter) update(fn func(*Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	snap := r.snapshotLocked()
	cb := r.callback
	r.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}
