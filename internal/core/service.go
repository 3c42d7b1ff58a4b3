package core

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention is how long a finished run stays in memory.
const DefaultRetention = 5 * time.Minute

// ReportStore persists final run reports beyond in-memory retention.
// Get returns ErrRunNotFound for unknown ids.
type ReportStore interface {
	Save(ctx context.Context, r *Result) error
	Get(ctx context.Context, runID string) (*Result, error)
	List(ctx context.Context, limit int) ([]*Result, error)
}

// ServiceConfig holds limits for background imports.
type ServiceConfig struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	Retention     time.Duration
}

// Service runs imports in the background and tracks their progress.
// It is safe for concurrent use; each run gets its own cache and reporter.
type Service struct {
	store    Store
	reports  ReportStore
	importer *Importer
	limiter  *RunLimiter
	metrics  *Metrics
	cfg      ServiceConfig

	mu   sync.RWMutex
	runs map[string]*activeRun
}

// NewService creates a Service. reports and metrics may be nil.
func NewService(store Store, reports ReportStore, metrics *Metrics, cfg ServiceConfig) *Service {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Service{
		store:    store,
		reports:  reports,
		importer: NewImporter(store, metrics),
		limiter:  NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime, metrics),
		metrics:  metrics,
		cfg:      cfg,
		runs:     make(map[string]*activeRun),
	}
}

// Store returns the entity store the service imports into.
func (s *Service) Store() Store {
	return s.store
}

// Reports returns the report store, or nil.
func (s *Service) Reports() ReportStore {
	return s.reports
}

// MaxFileSize returns the configured input size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

type activeRun struct {
	ID        string
	FileName  string
	StartedAt time.Time

	reporter *ProgressReporter
	done     chan struct{}

	mu        sync.Mutex
	result    *Result
	listeners []chan Progress
	closed    bool
}

func newActiveRun(id, fileName string) *activeRun {
	run := &activeRun{
		ID:        id,
		FileName:  fileName,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	run.reporter = NewProgressReporter(id, fileName, run.notify)
	return run
}

// notify fans a snapshot out to listeners. Slow listeners miss updates.
func (run *activeRun) notify(p Progress) {
	run.mu.Lock()
	defer run.mu.Unlock()

	for _, ch := range run.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

func (run *activeRun) subscribe() <-chan Progress {
	ch := make(chan Progress, 16)

	run.mu.Lock()
	defer run.mu.Unlock()

	ch <- run.reporter.Snapshot()
	if run.closed {
		close(ch)
		return ch
	}
	run.listeners = append(run.listeners, ch)
	return ch
}

// complete stores the result, hands every listener the final snapshot and
// closes it. Later calls are ignored.
func (run *activeRun) complete(result *Result) {
	run.mu.Lock()
	if run.closed {
		run.mu.Unlock()
		return
	}
	run.result = result
	run.closed = true
	final := result.Progress()
	for _, ch := range run.listeners {
		deliverFinal(ch, final)
		close(ch)
	}
	run.listeners = nil
	run.mu.Unlock()

	close(run.done)
}

// deliverFinal pushes the last snapshot, dropping the oldest queued one when
// the buffer is full. The caller holds run.mu, so no other send races it.
func deliverFinal(ch chan Progress, p Progress) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}

func (run *activeRun) finalResult() *Result {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.result
}
