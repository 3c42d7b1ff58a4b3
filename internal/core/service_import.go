package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/qbimport/internal/logging"
)

// reportSaveTimeout bounds the report store write at the end of a run.
const reportSaveTimeout = 10 * time.Second

// StartImport validates the input size, takes a run slot and imports data in
// the background. It returns the run id immediately; use SubscribeProgress,
// GetProgress or GetResult to follow the run.
//
// Returns ErrTooManyRuns if no slot frees up within the configured wait.
// The run is not cancelled when ctx ends: rows already started always finish.
func (s *Service) StartImport(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(data), s.cfg.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	run := newActiveRun(runID, fileName)

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	runCtx := logging.WithRunID(context.WithoutCancel(ctx), runID)

	// Process in background with panic recovery so the slot is always released.
	go func() {
		defer s.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				logging.FromContext(runCtx).Error("panic in import", "file", fileName, "panic", r)
				s.finish(runCtx, run, run.reporter.Fail(fmt.Errorf("internal error: %v", r)))
			}
		}()

		result := s.importer.RunWithReporter(runCtx, run.reporter, fileName, bytes.NewReader(data))
		s.finish(runCtx, run, result)
	}()

	return runID, nil
}

// StartImportReader reads r up to the size limit and calls StartImport.
func (s *Service) StartImportReader(ctx context.Context, fileName string, r io.Reader) (string, error) {
	if s.cfg.MaxFileSize > 0 {
		r = io.LimitReader(r, s.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return s.StartImport(ctx, fileName, data)
}

func (s *Service) finish(ctx context.Context, run *activeRun, result *Result) {
	if src, ok := SourceFromContext(ctx); ok {
		result.Source = &src
	}
	if s.reports != nil {
		saveCtx, cancel := context.WithTimeout(ctx, reportSaveTimeout)
		if err := s.reports.Save(saveCtx, result); err != nil {
			logging.FromContext(ctx).Warn("save run report", "error", err)
		}
		cancel()
	}

	run.complete(result)
	s.evictAfter(run.ID, s.cfg.Retention)
}

// evictAfter drops a finished run from memory after delay.
func (s *Service) evictAfter(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
		slog.Debug("import run evicted", "run_id", runID)
	})
}

func (s *Service) activeRun(runID string) (*activeRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}

// SubscribeProgress returns a channel that first receives the current
// snapshot and then one per update. It is closed when the run ends.
func (s *Service) SubscribeProgress(runID string) (<-chan Progress, error) {
	run, ok := s.activeRun(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run.subscribe(), nil
}

// GetProgress returns the current progress of an in-memory run.
func (s *Service) GetProgress(runID string) (Progress, error) {
	run, ok := s.activeRun(runID)
	if !ok {
		return Progress{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run.reporter.Snapshot(), nil
}

// GetResult blocks until the run finishes or ctx ends. Runs no longer in
// memory are read from the report store.
func (s *Service) GetResult(ctx context.Context, runID string) (*Result, error) {
	run, ok := s.activeRun(runID)
	if !ok {
		return s.storedReport(ctx, runID)
	}

	select {
	case <-run.done:
		return run.finalResult(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunStatus is the state of a run. Result is nil until the run finishes.
type RunStatus struct {
	Progress Progress `json:"progress"`
	Result   *Result  `json:"result,omitempty"`
}

// Lookup returns a run's state without blocking, falling back to the
// report store for evicted runs.
func (s *Service) Lookup(ctx context.Context, runID string) (*RunStatus, error) {
	if run, ok := s.activeRun(runID); ok {
		return &RunStatus{
			Progress: run.reporter.Snapshot(),
			Result:   run.finalResult(),
		}, nil
	}

	result, err := s.storedReport(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &RunStatus{Progress: result.Progress(), Result: result}, nil
}

func (s *Service) storedReport(ctx context.Context, runID string) (*Result, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return s.reports.Get(ctx, runID)
}

// RunSummary is a row of the run listing.
type RunSummary struct {
	Progress
	StartedAt time.Time `json:"started_at"`
}

// ListRuns returns in-memory runs and stored reports, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	seen := make(map[string]bool)
	var out []RunSummary

	s.mu.RLock()
	for _, run := range s.runs {
		out = append(out, RunSummary{Progress: run.reporter.Snapshot(), StartedAt: run.StartedAt})
		seen[run.ID] = true
	}
	s.mu.RUnlock()

	if s.reports != nil {
		stored, err := s.reports.List(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		for _, r := range stored {
			if seen[r.RunID] {
				continue
			}
			out = append(out, RunSummary{Progress: r.Progress(), StartedAt: r.StartedAt})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WaitForRuns blocks until every running import has finished or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}
