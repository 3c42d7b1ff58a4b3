// Package reports keeps final import run reports after a run has been
// evicted from the service's in-memory table.
package reports

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/qbimport/internal/core"
)

// Memory is a process-local report store. Reports older than ttl (by
// StartedAt) are dropped on access; a zero ttl keeps them forever.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	reports map[string]*core.Result
}

var _ core.ReportStore = (*Memory)(nil)

// NewMemory returns an in-process report store. ttl <= 0 keeps reports forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		reports: make(map[string]*core.Result),
	}
}

// Save stores r, replacing any report with the same run id.
func (m *Memory) Save(ctx context.Context, r *core.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.RunID] = r
	m.expireLocked()
	return nil
}

// Get returns the report for runID or core.ErrRunNotFound.
func (m *Memory) Get(_ context.Context, runID string) (*core.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[runID]
	if !ok || m.expired(r) {
		return nil, core.ErrRunNotFound
	}
	return r, nil
}

// List returns up to limit reports, newest first. limit <= 0 means all.
func (m *Memory) List(_ context.Context, limit int) ([]*core.Result, error) {
	m.mu.RLock()
	out := make([]*core.Result, 0, len(m.reports))
	for _, r := range m.reports {
		if !m.expired(r) {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HealthCheck always succeeds.
func (m *Memory) HealthCheck(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) expired(r *core.Result) bool {
	return m.ttl > 0 && m.now().Sub(r.StartedAt) > m.ttl
}

func (m *Memory) expireLocked() {
	for id, r := range m.reports {
		if m.expired(r) {
			delete(m.reports, id)
		}
	}
}

func sortNewestFirst(rs []*core.Result) {
	slices.SortFunc(rs, func(a, b *core.Result) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
}
