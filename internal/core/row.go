package core

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/qbimport/internal/tabular"
)

// Input column names.
const (
	ColProgramName    = "program_name"
	ColCourseName     = "course_name"
	ColSubjectName    = "subject_name"
	ColSubjectYear    = "subject_year"
	ColCompetencyName = "competency_name"
	ColQuestionText   = "question_text"
	ColLevel          = "level"
	ColPositiveMarks  = "positive_marks"
	ColExplanation    = "explanation"
	ColOptionA        = "option_a_text"
	ColOptionB        = "option_b_text"
	ColOptionC        = "option_c_text"
	ColOptionD        = "option_d_text"
	ColCorrectLabel   = "correct_option_label"
)

// Headers is the declared column order of an import file.
var Headers = []string{
	ColProgramName, ColCourseName, ColSubjectName, ColSubjectYear, ColCompetencyName,
	ColQuestionText, ColLevel, ColPositiveMarks, ColExplanation,
	ColOptionA, ColOptionB, ColOptionC, ColOptionD, ColCorrectLabel,
}

// OptionLabels are the answer slots, in creation order.
var OptionLabels = []string{"A", "B", "C", "D"}

var optionColumns = map[string]string{
	"A": ColOptionA,
	"B": ColOptionB,
	"C": ColOptionC,
	"D": ColOptionD,
}

// DefaultPositiveMarks applies when positive_marks is absent or unparsable.
const DefaultPositiveMarks = 1.0

// Row is one typed input record. String fields are "" when the column is
// absent or blank; Level keeps the distinction through HasLevel.
type Row struct {
	Line int

	ProgramName    string
	CourseName     string
	SubjectName    string
	SubjectYear    *int
	CompetencyName string

	QuestionText  string
	Level         string // raw value, before normalization
	HasLevel      bool   // the level column was present
	PositiveMarks float64
	Explanation   string
	CorrectLabel  string

	options map[string]string
	raw     map[string]string
}

// NewRow converts a parsed record into a typed Row.
func NewRow(rec tabular.Record) Row {
	r := Row{
		Line:           rec.Line,
		ProgramName:    rec.Values[ColProgramName],
		CourseName:     rec.Values[ColCourseName],
		SubjectName:    rec.Values[ColSubjectName],
		SubjectYear:    ParseIntOrNull(rec.Values[ColSubjectYear]),
		CompetencyName: rec.Values[ColCompetencyName],
		QuestionText:   rec.Values[ColQuestionText],
		PositiveMarks:  ParseFloatOrDefault(rec.Values[ColPositiveMarks], DefaultPositiveMarks),
		Explanation:    rec.Values[ColExplanation],
		CorrectLabel:   rec.Values[ColCorrectLabel],
		options:        make(map[string]string, len(optionColumns)),
		raw:            rec.Values,
	}
	r.Level, r.HasLevel = rec.Get(ColLevel)
	for label, col := range optionColumns {
		r.options[label] = rec.Values[col]
	}
	return r
}

// OptionText returns the text for an answer label (A-D).
func (r Row) OptionText(label string) string {
	return r.options[label]
}

// Raw returns the row's original column values.
func (r Row) Raw() map[string]string {
	return r.raw
}

// ParseIntOrNull reads the leading integer of s, as spreadsheet tools do:
// "2024" and "2024 batch" give 2024, "3.9" gives 3. Input without a leading
// integer gives nil.
func ParseIntOrNull(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}

// ParseFloatOrDefault reads the leading decimal number of s ("2", "1.5",
// ".5", "2e1", "3 marks"). Input without a leading number gives def.
func ParseFloatOrDefault(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	intStart := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	mantissa := end - intStart
	if end < len(s) && s[end] == '.' {
		end++
		fracStart := end
		for end < len(s) && isDigit(s[end]) {
			end++
		}
		mantissa += end - fracStart
	}
	if mantissa == 0 {
		return def
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		expDigits := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > expDigits {
			end = exp
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return def
	}
	return v
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// NormalizeLevel lowercases and trims a raw level.
func NormalizeLevel(raw string) (Level, bool) {
	switch l := Level(strings.ToLower(strings.TrimSpace(raw))); l {
	case LevelEasy, LevelMedium, LevelHard:
		return l, true
	default:
		return "", false
	}
}
