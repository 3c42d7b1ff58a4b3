package core

import (
	"context"
	"fmt"
	"sync"
)

// fakeRepo is an in-memory Repository that counts calls and can be told to
// fail.
type fakeRepo[T any] struct {
	kind   Kind
	match  func(T, Criteria) bool
	withID func(T, string) T

	mu        sync.Mutex
	items     []T
	filters   int
	creates   int
	filterErr error
	createErr error
	emptyID   bool
	onCreate  func(T) error
}

func (r *fakeRepo[T]) Filter(_ context.Context, c Criteria) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters++
	if r.filterErr != nil {
		return nil, r.filterErr
	}
	var out []T
	for _, it := range r.items {
		if r.match(it, c) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo[T]) Create(_ context.Context, v T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		var zero T
		return zero, r.createErr
	}
	if r.onCreate != nil {
		if err := r.onCreate(v); err != nil {
			var zero T
			return zero, err
		}
	}
	id := fmt.Sprintf("%s-%d", r.kind, len(r.items)+1)
	if r.emptyID {
		id = ""
	}
	v = r.withID(v, id)
	r.items = append(r.items, v)
	return v, nil
}

func (r *fakeRepo[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

func (r *fakeRepo[T]) calls() (filters, creates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filters, r.creates
}

type fakeStore struct {
	programs     *fakeRepo[Program]
	courses      *fakeRepo[Course]
	subjects     *fakeRepo[Subject]
	competencies *fakeRepo[Competency]
	questions    *fakeRepo[Question]
	options      *fakeRepo[Option]
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		programs: &fakeRepo[Program]{
			kind:   KindProgram,
			match:  func(p Program, c Criteria) bool { return p.Name == c[FieldName] },
			withID: func(p Program, id string) Program { p.ID = id; return p },
		},
		courses: &fakeRepo[Course]{
			kind: KindCourse,
			match: func(v Course, c Criteria) bool {
				return v.Name == c[FieldName] && v.ProgramID == c[FieldProgramID]
			},
			withID: func(v Course, id string) Course { v.ID = id; return v },
		},
		subjects: &fakeRepo[Subject]{
			kind: KindSubject,
			match: func(v Subject, c Criteria) bool {
				return v.Name == c[FieldName] && v.CourseID == c[FieldCourseID]
			},
			withID: func(v Subject, id string) Subject { v.ID = id; return v },
		},
		competencies: &fakeRepo[Competency]{
			kind: KindCompetency,
			match: func(v Competency, c Criteria) bool {
				return v.Name == c[FieldName] && v.SubjectID == c[FieldSubjectID]
			},
			withID: func(v Competency, id string) Competency { v.ID = id; return v },
		},
		questions: &fakeRepo[Question]{
			kind:   KindQuestion,
			match:  func(Question, Criteria) bool { return true },
			withID: func(v Question, id string) Question { v.ID = id; return v },
		},
		options: &fakeRepo[Option]{
			kind:   KindOption,
			match:  func(Option, Criteria) bool { return true },
			withID: func(v Option, id string) Option { v.ID = id; return v },
		},
	}
}

func (s *fakeStore) Programs() Repository[Program] { return s.programs }
func (s *fakeStore) Courses() Repository[Course] { return s.courses }
func (s *fakeStore) Subjects() Repository[Subject] { return s.subjects }
func (s *fakeStore) Competencies() Repository[Competency] { return s.competencies }
func (s *fakeStore) Questions() Repository[Question] { return s.questions }
func (s *fakeStore) Options() Repository[Option] { return s.options }

// fakeReports is an in-memory ReportStore.
type fakeReports struct {
	mu      sync.Mutex
	results map[string]*Result
}

func newFakeReports() *fakeReports {
	return &fakeReports{results: make(map[string]*Result)}
}

func (f *fakeReports) Save(_ context.Context, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[r.RunID] = r
	return nil
}

func (f *fakeReports) Get(_ context.Context, runID string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, nil
}

func (f *fakeReports) List(_ context.Context, _ int) ([]*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Result, 0, len(f.results))
	for _, r := range f.results {
		out = append(out, r)
	}
	return out, nil
}
