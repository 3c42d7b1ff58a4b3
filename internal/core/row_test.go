package core

import (
	"testing"

	"github.com/JonMunkholm/qbimport/internal/tabular"
)

func TestParseIntOrNull(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"2024", intPtr(2024)},
		{" 2 ", intPtr(2)},
		{"0", intPtr(0)},
		{"-3", intPtr(-3)},
		{"+7", intPtr(7)},
		{"3.9", intPtr(3)},
		{"2024 batch", intPtr(2024)},
		{"", nil},
		{"year 2", nil},
		{"-", nil},
		{"abc", nil},
		{"99999999999999999999999", nil},
	}

	for _, tt := range tests {
		got := ParseIntOrNull(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseIntOrNull(%q) = %d, want nil", tt.in, *got)
		case tt.want != nil && got == nil:
			t.Errorf("ParseIntOrNull(%q) = nil, want %d", tt.in, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("ParseIntOrNull(%q) = %d, want %d", tt.in, *got, *tt.want)
		}
	}
}

func TestParseFloatOrDefault(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2", 2},
		{"1.5", 1.5},
		{" 4 ", 4},
		{".5", 0.5},
		{"-0.25", -0.25},
		{"0", 0},
		{"2e1", 20},
		{"2e", 2},
		{"3 marks", 3},
		{"", 1},
		{"abc", 1},
		{".", 1},
		{"NaN", 1},
		{"Infinity", 1},
	}

	for _, tt := range tests {
		if got := ParseFloatOrDefault(tt.in, 1); got != tt.want {
			t.Errorf("ParseFloatOrDefault(%q, 1) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"easy", LevelEasy, true},
		{" Hard ", LevelHard, true},
		{"MEDIUM", LevelMedium, true},
		{"", "", false},
		{"expert", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeLevel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewRow(t *testing.T) {
	rec := tabular.Record{
		Line: 4,
		Values: map[string]string{
			ColProgramName:  "Bio",
			ColSubjectYear:  "2",
			ColOptionB:      "Atom",
			ColCorrectLabel: "B",
		},
	}

	row := NewRow(rec)
	if row.Line != 4 {
		t.Errorf("Line = %d, want 4", row.Line)
	}
	if row.SubjectYear == nil || *row.SubjectYear != 2 {
		t.Errorf("SubjectYear = %v, want 2", row.SubjectYear)
	}
	if row.PositiveMarks != DefaultPositiveMarks {
		t.Errorf("PositiveMarks = %v, want default %v", row.PositiveMarks, DefaultPositiveMarks)
	}
	if row.HasLevel {
		t.Error("HasLevel should be false when the column is absent")
	}
	if row.OptionText("B") != "Atom" || row.OptionText("A") != "" {
		t.Errorf("OptionText mismatch: A=%q B=%q", row.OptionText("A"), row.OptionText("B"))
	}
	if row.Raw()[ColProgramName] != "Bio" {
		t.Error("Raw() should expose original values")
	}
}

func intPtr(n int) *int { return &n }
