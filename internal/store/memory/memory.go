// Package memory is an in-process entity store used by tests, the CLI demo
// driver and servers started without a database.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/schema"
)

// Store keeps every entity in insertion order.
type Store struct {
	programs     *repo[core.Program]
	courses      *repo[core.Course]
	subjects     *repo[core.Subject]
	competencies *repo[core.Competency]
	questions    *repo[core.Question]
	options      *repo[core.Option]
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		programs:     newRepo(schema.Programs),
		courses:      newRepo(schema.Courses),
		subjects:     newRepo(schema.Subjects),
		competencies: newRepo(schema.Competencies),
		questions:    newRepo(schema.Questions),
		options:      newRepo(schema.Options),
	}
}

func (s *Store) Programs() core.Repository[core.Program] { return s.programs }
func (s *Store) Courses() core.Repository[core.Course] { return s.courses }
func (s *Store) Subjects() core.Repository[core.Subject] { return s.subjects }
func (s *Store) Competencies() core.Repository[core.Competency] { return s.competencies }
func (s *Store) Questions() core.Repository[core.Question] { return s.questions }
func (s *Store) Options() core.Repository[core.Option] { return s.options }

// Migrate is a no-op.
func (s *Store) Migrate(context.Context) error { return nil }

// HealthCheck always succeeds.
func (s *Store) HealthCheck(context.Context) error { return nil }

// Reset removes every entity.
func (s *Store) Reset(context.Context) error {
	s.programs.reset()
	s.courses.reset()
	s.subjects.reset()
	s.competencies.reset()
	s.questions.reset()
	s.options.reset()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Counts returns the number of stored entities per kind.
func (s *Store) Counts() map[core.Kind]int {
	return map[core.Kind]int{
		core.KindProgram:    s.programs.len(),
		core.KindCourse:     s.courses.len(),
		core.KindSubject:    s.subjects.len(),
		core.KindCompetency: s.competencies.len(),
		core.KindQuestion:   s.questions.len(),
		core.KindOption:     s.options.len(),
	}
}

type repo[T any] struct {
	table schema.Table[T]

	mu    sync.RWMutex
	items []T
}

func newRepo[T any](table schema.Table[T]) *repo[T] {
	return &repo[T]{table: table}
}

// Filter matches criteria against the same columns the SQL stores expose.
func (r *repo[T]) Filter(ctx context.Context, c core.Criteria) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := r.table.SelectSQL(schema.SQLite, c); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []T
	for _, item := range r.items {
		if r.matches(item, c) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *repo[T]) matches(item T, c core.Criteria) bool {
	values := r.table.Values(item)
	for col, want := range c {
		i := slices.Index(r.table.Columns, col)
		got, ok := values[i].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (r *repo[T]) Create(ctx context.Context, v T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	v = r.table.WithID(v, uuid.NewString())

	r.mu.Lock()
	r.items = append(r.items, v)
	r.mu.Unlock()
	return v, nil
}

func (r *repo[T]) all() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *repo[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *repo[T]) reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// AllQuestions returns a copy of every stored question.
func (s *Store) AllQuestions() []core.Question { return s.questions.all() }

// AllOptions returns a copy of every stored option.
func (s *Store) AllOptions() []core.Option { return s.options.all() }
