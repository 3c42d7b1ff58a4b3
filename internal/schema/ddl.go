package schema

import "strings"

// DDL returns the CREATE statements for every entity table. Natural keys are
// indexed but not unique: the importer looks up before it creates.
func DDL(d Dialect) []string {
	ts := "TIMESTAMPTZ NOT NULL DEFAULT now()"
	real := "DOUBLE PRECISION"
	boolean := "BOOLEAN"
	if d == SQLite {
		ts = "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
		real = "REAL"
		boolean = "INTEGER"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS programs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS programs_name_idx ON programs (name)`,
		`CREATE TABLE IF NOT EXISTS courses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	program_id TEXT NOT NULL REFERENCES programs (id),
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS courses_program_name_idx ON courses (program_id, name)`,
		`CREATE TABLE IF NOT EXISTS subjects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	course_id TEXT NOT NULL REFERENCES courses (id),
	year INTEGER,
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS subjects_course_name_idx ON subjects (course_id, name)`,
		`CREATE TABLE IF NOT EXISTS competencies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	subject_id TEXT NOT NULL REFERENCES subjects (id),
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS competencies_subject_name_idx ON competencies (subject_id, name)`,
		`CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	question_text TEXT NOT NULL,
	subject_id TEXT NOT NULL REFERENCES subjects (id),
	competency_id TEXT REFERENCES competencies (id),
	level TEXT NOT NULL CHECK (level IN ('easy', 'medium', 'hard')),
	positive_marks {{real}} NOT NULL DEFAULT 1,
	solution_explanation TEXT NOT NULL DEFAULT '',
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS questions_subject_idx ON questions (subject_id)`,
		`CREATE TABLE IF NOT EXISTS options (
	id TEXT PRIMARY KEY,
	question_id TEXT NOT NULL REFERENCES questions (id),
	option_label TEXT NOT NULL CHECK (option_label IN ('A', 'B', 'C', 'D')),
	option_text TEXT NOT NULL,
	is_correct {{bool}} NOT NULL DEFAULT {{false}},
	created_at {{ts}}
)`,
		`CREATE INDEX IF NOT EXISTS options_question_idx ON options (question_id)`,
	}

	falseLit := "false"
	if d == SQLite {
		falseLit = "0"
	}
	r := strings.NewReplacer("{{ts}}", ts, "{{real}}", real, "{{bool}}", boolean, "{{false}}", falseLit)
	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

// TableNames lists the entity tables, children first, for truncation.
var TableNames = []string{"options", "questions", "competencies", "subjects", "courses", "programs"}
