package core

import (
	"context"
	"time"
)

// Kind names an entity type the pipeline reads or writes.
type Kind string

const (
	KindProgram    Kind = "program"
	KindCourse     Kind = "course"
	KindSubject    Kind = "subject"
	KindCompetency Kind = "competency"
	KindQuestion   Kind = "question"
	KindOption     Kind = "option"
)

// Kinds lists every entity kind in creation order.
var Kinds = []Kind{KindProgram, KindCourse, KindSubject, KindCompetency, KindQuestion, KindOption}

// Program is the root of the hierarchy, unique by Name.
type Program struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Course belongs to a Program, unique by (ProgramID, Name).
type Course struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProgramID string `json:"program_id"`
}

// Subject belongs to a Course, unique by (CourseID, Name).
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CourseID string `json:"course_id"`
	Year     *int   `json:"year"`
}

// Competency belongs to a Subject, unique by (SubjectID, Name).
type Competency struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SubjectID string `json:"subject_id"`
}

// Level is a question difficulty.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Question is created for every valid row and never deduplicated.
type Question struct {
	ID                  string  `json:"id"`
	QuestionText        string  `json:"question_text"`
	SubjectID           string  `json:"subject_id"`
	CompetencyID        *string `json:"competency_id"`
	Level               Level   `json:"level"`
	PositiveMarks       float64 `json:"positive_marks"`
	SolutionExplanation string  `json:"solution_explanation"`
}

// Option is one answer choice of a Question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Label      string `json:"option_label"`
	Text       string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Criteria is an equality filter keyed by store column name.
type Criteria map[string]string

// Filter columns used by the resolver.
const (
	FieldName      = "name"
	FieldProgramID = "program_id"
	FieldCourseID  = "course_id"
	FieldSubjectID = "subject_id"
)

// Repository is the store surface the pipeline needs for one entity kind.
// Filter returns every entity whose columns equal all criteria values.
// Create persists a new entity and returns it with its assigned ID.
type Repository[T any] interface {
	Filter(ctx context.Context, c Criteria) ([]T, error)
	Create(ctx context.Context, v T) (T, error)
}

// Store groups the repositories for every entity kind.
type Store interface {
	Programs() Repository[Program]
	Courses() Repository[Course]
	Subjects() Repository[Subject]
	Competencies() Repository[Competency]
	Questions() Repository[Question]
	Options() Repository[Option]
}

// Phase is the lifecycle stage of an import run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseParsing    Phase = "parsing"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Finished reports whether no further updates will follow.
func (p Phase) Finished() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Progress is the running tally of an import.
type Progress struct {
	RunID    string   `json:"run_id,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	Phase    Phase    `json:"phase"`
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	Error    string   `json:"error,omitempty"` // run-level failure
}

// Processed returns the number of rows with an outcome.
func (p Progress) Processed() int {
	return p.Success + p.Failed
}

// Percent returns processed rows as a percentage (0-100).
func (p Progress) Percent() int {
	if p.Total <= 0 {
		if p.Phase.Finished() {
			return 100
		}
		return 0
	}
	return p.Processed() * 100 / p.Total
}

// ProgressCallback receives a snapshot after every update.
type ProgressCallback func(Progress)

// FailedRow describes a row that did not produce a Question.
type FailedRow struct {
	Line   int               `json:"line" yaml:"line"`
	Reason string            `json:"reason" yaml:"reason"`
	Code   string            `json:"code" yaml:"code"`
	Data   map[string]string `json:"data,omitempty" yaml:"data,omitempty"`
}

// Result is the final report of an import run.
type Result struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	FileName   string        `json:"file_name" yaml:"file_name"`
	Phase      Phase         `json:"phase" yaml:"phase"`
	Headers    []string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	Total      int           `json:"total" yaml:"total"`
	Success    int           `json:"success" yaml:"success"`
	Failed     int           `json:"failed" yaml:"failed"`
	Errors     []string      `json:"errors" yaml:"errors"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty" yaml:"failed_rows,omitempty"`
	Warnings   []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Created    map[Kind]int  `json:"created" yaml:"created"`
	Source     *Source       `json:"source,omitempty" yaml:"source,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Progress returns the tally portion of the result.
func (r *Result) Progress() Progress {
	return Progress{
		RunID:    r.RunID,
		FileName: r.FileName,
		Phase:    r.Phase,
		Total:    r.Total,
		Success:  r.Success,
		Failed:   r.Failed,
		Errors:   r.Errors,
		Error:    r.Error,
	}
}
