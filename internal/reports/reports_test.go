package reports

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/core"
)

func result(id string, started time.Time) *core.Result {
	return &core.Result{
		RunID:     id,
		FileName:  id + ".csv",
		Phase:     core.PhaseDone,
		Total:     3,
		Success:   2,
		Failed:    1,
		Errors:    []string{"Row 3: boom"},
		Created:   map[core.Kind]int{core.KindQuestion: 2},
		StartedAt: started,
	}
}

func TestMemory_SaveGet(t *testing.T) {
	ctx := t.Context()
	m := NewMemory(0)

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("Get() error = %v, want ErrRunNotFound", err)
	}

	want := result("r1", time.Now())
	if err := m.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Success != 2 || got.Errors[0] != "Row 3: boom" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestMemory_ListNewestFirst(t *testing.T) {
	ctx := t.Context()
	m := NewMemory(0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		m.Save(ctx, result(id, base.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"c", "b", "a"}},
		{2, []string{"c", "b"}},
		{10, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		got, err := m.List(ctx, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("List(%d) returned %d reports", tt.limit, len(got))
		}
		for i, id := range tt.want {
			if got[i].RunID != id {
				t.Errorf("List(%d)[%d] = %s, want %s", tt.limit, i, got[i].RunID, id)
			}
		}
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }

	m.Save(ctx, result("old", now.Add(-2*time.Hour)))
	m.Save(ctx, result("new", now.Add(-time.Minute)))

	if _, err := m.Get(ctx, "old"); !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("expired report still returned: %v", err)
	}
	list, _ := m.List(ctx, 0)
	if len(list) != 1 || list[0].RunID != "new" {
		t.Errorf("List() = %d reports", len(list))
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_MemoryWithoutURL(t *testing.T) {
	s, err := Open(t.Context(), config.CacheConfig{ReportTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open() returned %T, want *Memory", s)
	}
}

func TestNewRedis_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := NewRedis(t.Context(), "redis://localhost:59999", time.Hour)
	if err == nil {
		t.Fatal("NewRedis() should return error for unreachable host")
	}
}

// TestRedis runs against TEST_REDIS_URL when it is set.
func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := t.Context()
	r, err := NewRedis(ctx, url, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.prefix = "qbimport:test:" + time.Now().Format("150405.000000")

	now := time.Now()
	r.Save(ctx, result("r1", now.Add(-time.Minute)))
	r.Save(ctx, result("r2", now))

	got, err := r.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Created[core.KindQuestion] != 2 {
		t.Errorf("Created = %v", got.Created)
	}
	if _, err := r.Get(ctx, "nope"); !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}

	r.Client.Del(ctx, r.key("r1"))
	list, err := r.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].RunID != "r2" {
		t.Errorf("List() = %+v", list)
	}
}
