package core

import (
	"context"
	"fmt"
	"strings"
)

// Materializer creates a row's Question and its non-empty Options.
type Materializer struct {
	store Store

	// OnCreate, when set, is called after every Question or Option created.
	OnCreate func(Kind)
}

// NewMaterializer binds a store.
func NewMaterializer(store Store) *Materializer {
	return &Materializer{store: store}
}

// ValidateLevel normalizes the row's level. An absent level column means
// medium; a present but blank or unknown value is a ValidationError.
func ValidateLevel(row Row) (Level, error) {
	if !row.HasLevel {
		return LevelMedium, nil
	}
	level, ok := NormalizeLevel(row.Level)
	if !ok {
		return "", &ValidationError{
			Field:   ColLevel,
			Message: fmt.Sprintf("Invalid level value: '%s'. Must be one of easy, medium, hard.", row.Level),
		}
	}
	return level, nil
}

// Materialize validates the level, creates the Question under res and then
// one Option per non-empty label A-D. Store errors are returned as is.
func (m *Materializer) Materialize(ctx context.Context, res Resolution, row Row) (Question, []Option, error) {
	level, err := ValidateLevel(row)
	if err != nil {
		return Question{}, nil, err
	}

	q, err := m.store.Questions().Create(ctx, Question{
		QuestionText:        row.QuestionText,
		SubjectID:           res.SubjectID,
		CompetencyID:        res.CompetencyID,
		Level:               level,
		PositiveMarks:       row.PositiveMarks,
		SolutionExplanation: row.Explanation,
	})
	if err != nil {
		return Question{}, nil, err
	}
	m.created(KindQuestion)

	var opts []Option
	for _, label := range OptionLabels {
		text := row.OptionText(label)
		if strings.TrimSpace(text) == "" {
			continue
		}
		o, err := m.store.Options().Create(ctx, Option{
			QuestionID: q.ID,
			Label:      label,
			Text:       text,
			IsCorrect:  row.CorrectLabel == label,
		})
		if err != nil {
			return q, opts, err
		}
		m.created(KindOption)
		opts = append(opts, o)
	}

	return q, opts, nil
}

func (m *Materializer) created(kind Kind) {
	if m.OnCreate != nil {
		m.OnCreate(kind)
	}
}
