package views

import (
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/qbimport/internal/core"
)

func TestIndex_EscapesFileNames(t *testing.T) {
	var b strings.Builder
	err := Index(IndexProps{
		Runs: []core.RunSummary{{
			Progress:  core.Progress{RunID: "r1", FileName: "<script>x</script>.csv", Phase: core.PhaseDone, Total: 2, Success: 1, Failed: 1},
			StartedAt: time.Now(),
		}},
		Headers:     core.Headers,
		MaxFileSize: 100 << 20,
		Extensions:  []string{".csv", ".xlsx"},
	}).Render(t.Context(), &b)
	if err != nil {
		t.Fatal(err)
	}

	out := b.String()
	if strings.Contains(out, "<script>x</script>") {
		t.Error("file name not escaped")
	}
	for _, want := range []string{`href="/imports/r1"`, "100 MB", "program_name", `class="failed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestIndex_Empty(t *testing.T) {
	var b strings.Builder
	if err := Index(IndexProps{}).Render(t.Context(), &b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "No imports yet.") || !strings.Contains(b.String(), "unlimited") {
		t.Errorf("unexpected output: %s", b.String())
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		status    *core.RunStatus
		want      []string
		notWanted []string
	}{
		{
			name: "in progress streams events",
			status: &core.RunStatus{Progress: core.Progress{
				RunID: "r1", FileName: "q.csv", Phase: core.PhaseProcessing, Total: 4, Success: 1,
			}},
			want:      []string{"EventSource", "/api/imports/r1/events", "width:25%"},
			notWanted: []string{"Download failed rows"},
		},
		{
			name: "finished with errors",
			status: &core.RunStatus{
				Progress: core.Progress{
					RunID: "r2", FileName: "q.csv", Phase: core.PhaseDone, Total: 2, Success: 1, Failed: 1,
					Errors: []string{"Row 3: Invalid level value: ''. Must be one of easy, medium, hard."},
				},
				Result: &core.Result{Created: map[core.Kind]int{core.KindQuestion: 1}},
			},
			want:      []string{"/api/imports/r2/errors.csv", "Row 3: Invalid level value: &#39;&#39;", "<td>question</td><td>1</td>"},
			notWanted: []string{"EventSource"},
		},
		{
			name: "parse failure shows alert",
			status: &core.RunStatus{Progress: core.Progress{
				RunID: "r3", FileName: "empty.csv", Phase: core.PhaseFailed, Error: "file is empty",
			}},
			want: []string{`role="alert"`, "FILE00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := Run(tt.status).Render(t.Context(), &b); err != nil {
				t.Fatal(err)
			}
			out := b.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q", want)
				}
			}
			for _, nw := range tt.notWanted {
				if strings.Contains(out, nw) {
					t.Errorf("output unexpectedly contains %q", nw)
				}
			}
		})
	}
}
