package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/qbimport/internal/logging"
)

// Resolution holds the hierarchy ids a row's Question attaches to.
type Resolution struct {
	ProgramID    string
	CourseID     string
	SubjectID    string
	CompetencyID *string
}

// Resolver finds or creates the Program, Course, Subject and Competency
// named by a row, in that order, through a run's ResolutionCache.
type Resolver struct {
	store Store
	cache *ResolutionCache

	// OnCreate, when set, is called after every entity the resolver creates.
	OnCreate func(Kind)
}

// NewResolver binds a store and a run-scoped cache.
func NewResolver(store Store, cache *ResolutionCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve returns the ids for row's hierarchy. A Program, Course or Subject
// failure aborts with the store's error. A Competency failure is logged and
// the row proceeds without one.
func (r *Resolver) Resolve(ctx context.Context, row Row) (Resolution, error) {
	var res Resolution
	var err error

	res.ProgramID, err = r.program(ctx, row.ProgramName)
	if err != nil {
		return res, err
	}

	res.CourseID, err = r.course(ctx, res.ProgramID, row.CourseName)
	if err != nil {
		return res, err
	}

	res.SubjectID, err = r.subject(ctx, res.CourseID, row.SubjectName, row.SubjectYear)
	if err != nil {
		return res, err
	}

	if row.CompetencyName == "" {
		return res, nil
	}
	id, err := r.competency(ctx, res.SubjectID, row.CompetencyName)
	if err != nil {
		logging.FromContext(ctx).Warn("competency not resolved, importing question without it",
			"line", row.Line,
			"competency", row.CompetencyName,
			"error", err,
		)
		return res, nil
	}
	res.CompetencyID = &id
	return res, nil
}

func (r *Resolver) program(ctx context.Context, name string) (string, error) {
	repo := r.store.Programs()
	return r.cache.GetOrCreate(ctx, KindProgram, ProgramKey(name),
		func(ctx context.Context) (string, bool, error) {
			found, err := repo.Filter(ctx, Criteria{FieldName: name})
			if err != nil || len(found) == 0 {
				return "", false, err
			}
			return found[0].ID, true, nil
		},
		func(ctx context.Context) (string, error) {
			p, err := repo.Create(ctx, Program{Name: name})
			if err != nil {
				return "", err
			}
			return r.created(KindProgram, name, p.ID)
		},
	)
}

func (r *Resolver) course(ctx context.Context, programID, name string) (string, error) {
	repo := r.store.Courses()
	return r.cache.GetOrCreate(ctx, KindCourse, ChildKey(programID, name),
		func(ctx context.Context) (string, bool, error) {
			found, err := repo.Filter(ctx, Criteria{FieldProgramID: programID, FieldName: name})
			if err != nil || len(found) == 0 {
				return "", false, err
			}
			return found[0].ID, true, nil
		},
		func(ctx context.Context) (string, error) {
			c, err := repo.Create(ctx, Course{Name: name, ProgramID: programID})
			if err != nil {
				return "", err
			}
			return r.created(KindCourse, name, c.ID)
		},
	)
}

func (r *Resolver) subject(ctx context.Context, courseID, name string, year *int) (string, error) {
	repo := r.store.Subjects()
	return r.cache.GetOrCreate(ctx, KindSubject, ChildKey(courseID, name),
		func(ctx context.Context) (string, bool, error) {
			found, err := repo.Filter(ctx, Criteria{FieldCourseID: courseID, FieldName: name})
			if err != nil || len(found) == 0 {
				return "", false, err
			}
			return found[0].ID, true, nil
		},
		func(ctx context.Context) (string, error) {
			s, err := repo.Create(ctx, Subject{Name: name, CourseID: courseID, Year: year})
			if err != nil {
				return "", err
			}
			return r.created(KindSubject, name, s.ID)
		},
	)
}

func (r *Resolver) competency(ctx context.Context, subjectID, name string) (string, error) {
	repo := r.store.Competencies()
	return r.cache.GetOrCreate(ctx, KindCompetency, ChildKey(subjectID, name),
		func(ctx context.Context) (string, bool, error) {
			found, err := repo.Filter(ctx, Criteria{FieldSubjectID: subjectID, FieldName: name})
			if err != nil || len(found) == 0 {
				return "", false, err
			}
			return found[0].ID, true, nil
		},
		func(ctx context.Context) (string, error) {
			c, err := repo.Create(ctx, Competency{Name: name, SubjectID: subjectID})
			if err != nil {
				return "", err
			}
			return r.created(KindCompetency, name, c.ID)
		},
	)
}

// created guards against stores that return no id, so no child is ever
// attached to an empty parent.
func (r *Resolver) created(kind Kind, name, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("store returned empty id for %s %q", kind, name)
	}
	if r.OnCreate != nil {
		r.OnCreate(kind)
	}
	return id, nil
}
