package core

import (
	"slices"
	"testing"
)

func TestInspectHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		wantMissing []string
		wantUnknown []string
	}{
		{"all known", Headers, nil, nil},
		{"minimal", []string{ColProgramName, ColCourseName, ColSubjectName, ColQuestionText}, nil, nil},
		{"missing question text", []string{ColProgramName, ColCourseName, ColSubjectName}, []string{ColQuestionText}, nil},
		{"extra column", append(slices.Clone(Headers), "notes"), nil, []string{"notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InspectHeaders(tt.headers)
			if !slices.Equal(got.Missing, tt.wantMissing) {
				t.Errorf("Missing = %v, want %v", got.Missing, tt.wantMissing)
			}
			if !slices.Equal(got.Unknown, tt.wantUnknown) {
				t.Errorf("Unknown = %v, want %v", got.Unknown, tt.wantUnknown)
			}
		})
	}
}

func TestHeaderCheckWarnings(t *testing.T) {
	got := HeaderCheck{Missing: []string{"question_text"}, Unknown: []string{"a", "b"}}.Warnings()
	want := []string{"Missing columns: question_text", "Ignored columns: a, b"}
	if !slices.Equal(got, want) {
		t.Errorf("Warnings() = %q, want %q", got, want)
	}
	if (HeaderCheck{}).Warnings() != nil {
		t.Error("empty check should have no warnings")
	}
}

func TestImporter_RecordsHeaderWarnings(t *testing.T) {
	store := newFakeStore()
	csv := "program_name,course_name,subject_name,question_text,notes\nBio,BioC,Genetics,Q1,x\n"
	result, _ := runCSV(t, store, csv)

	if result.Success != 1 {
		t.Fatalf("Success = %d, want 1", result.Success)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "Ignored columns: notes" {
		t.Errorf("Warnings = %q", result.Warnings)
	}
}

func TestService_RecordsSource(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeReports(), ServiceConfig{})
	ctx := WithSource(t.Context(), Source{IP: "10.0.0.7", UserAgent: "curl"})

	runID, err := svc.StartImport(ctx, "q.csv", []byte(header+"Bio,BioC,Genetics,,,Q1,easy,,,,,,,\n"))
	if err != nil {
		t.Fatal(err)
	}
	result, err := svc.GetResult(t.Context(), runID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Source == nil || result.Source.IP != "10.0.0.7" || result.Source.UserAgent != "curl" {
		t.Errorf("Source = %+v", result.Source)
	}
}
