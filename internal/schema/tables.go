package schema

import "github.com/JonMunkholm/qbimport/internal/core"

var Programs = Table[core.Program]{
	Name:    "programs",
	Columns: []string{"name"},
	Values:  func(v core.Program) []any { return []any{v.Name} },
	Scan: func(s Scanner) (core.Program, error) {
		var v core.Program
		err := s.Scan(&v.ID, &v.Name)
		return v, err
	},
	WithID: func(v core.Program, id string) core.Program { v.ID = id; return v },
}

var Courses = Table[core.Course]{
	Name:    "courses",
	Columns: []string{"name", "program_id"},
	Values:  func(v core.Course) []any { return []any{v.Name, v.ProgramID} },
	Scan: func(s Scanner) (core.Course, error) {
		var v core.Course
		err := s.Scan(&v.ID, &v.Name, &v.ProgramID)
		return v, err
	},
	WithID: func(v core.Course, id string) core.Course { v.ID = id; return v },
}

var Subjects = Table[core.Subject]{
	Name:    "subjects",
	Columns: []string{"name", "course_id", "year"},
	Values:  func(v core.Subject) []any { return []any{v.Name, v.CourseID, v.Year} },
	Scan: func(s Scanner) (core.Subject, error) {
		var v core.Subject
		err := s.Scan(&v.ID, &v.Name, &v.CourseID, &v.Year)
		return v, err
	},
	WithID: func(v core.Subject, id string) core.Subject { v.ID = id; return v },
}

var Competencies = Table[core.Competency]{
	Name:    "competencies",
	Columns: []string{"name", "subject_id"},
	Values:  func(v core.Competency) []any { return []any{v.Name, v.SubjectID} },
	Scan: func(s Scanner) (core.Competency, error) {
		var v core.Competency
		err := s.Scan(&v.ID, &v.Name, &v.SubjectID)
		return v, err
	},
	WithID: func(v core.Competency, id string) core.Competency { v.ID = id; return v },
}

var Questions = Table[core.Question]{
	Name:    "questions",
	Columns: []string{"question_text", "subject_id", "competency_id", "level", "positive_marks", "solution_explanation"},
	Values: func(v core.Question) []any {
		return []any{v.QuestionText, v.SubjectID, v.CompetencyID, string(v.Level), v.PositiveMarks, v.SolutionExplanation}
	},
	Scan: func(s Scanner) (core.Question, error) {
		var v core.Question
		var level string
		err := s.Scan(&v.ID, &v.QuestionText, &v.SubjectID, &v.CompetencyID, &level, &v.PositiveMarks, &v.SolutionExplanation)
		v.Level = core.Level(level)
		return v, err
	},
	WithID: func(v core.Question, id string) core.Question { v.ID = id; return v },
}

var Options = Table[core.Option]{
	Name:    "options",
	Columns: []string{"question_id", "option_label", "option_text", "is_correct"},
	Values:  func(v core.Option) []any { return []any{v.QuestionID, v.Label, v.Text, v.IsCorrect} },
	Scan: func(s Scanner) (core.Option, error) {
		var v core.Option
		err := s.Scan(&v.ID, &v.QuestionID, &v.Label, &v.Text, &v.IsCorrect)
		return v, err
	},
	WithID: func(v core.Option, id string) core.Option { v.ID = id; return v },
}
