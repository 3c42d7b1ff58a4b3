package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestService(store Store, reports ReportStore, cfg ServiceConfig) *Service {
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.MaxWaitTime == 0 {
		cfg.MaxWaitTime = time.Second
	}
	return NewService(store, reports, nil, cfg)
}

func TestService_StartImportAndGetResult(t *testing.T) {
	store := newFakeStore()
	reports := newFakeReports()
	svc := newTestService(store, reports, ServiceConfig{MaxFileSize: 1 << 20})

	csv := header + "Bio,BioC,Genetics,2,,Q1,easy,1,,a,b,,,A\n"
	runID, err := svc.StartImport(t.Context(), "q.csv", []byte(csv))
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}

	result, err := svc.GetResult(t.Context(), runID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if result.RunID != runID || result.Success != 1 || result.Phase != PhaseDone {
		t.Errorf("result = %+v", result)
	}

	saved, err := reports.Get(t.Context(), runID)
	if err != nil {
		t.Fatalf("report not saved: %v", err)
	}
	if saved.Success != 1 {
		t.Errorf("saved.Success = %d, want 1", saved.Success)
	}

	if err := svc.WaitForRuns(t.Context()); err != nil {
		t.Errorf("WaitForRuns() error = %v", err)
	}
}

func TestService_RejectsBadInput(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, ServiceConfig{MaxFileSize: 10})

	if _, err := svc.StartImport(t.Context(), "q.csv", nil); !errors.Is(err, ErrNoFile) {
		t.Errorf("empty data: error = %v, want ErrNoFile", err)
	}
	if _, err := svc.StartImport(t.Context(), "q.csv", make([]byte, 11)); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("large data: error = %v, want ErrFileTooLarge", err)
	}
}

func TestService_SubscribeProgress(t *testing.T) {
	store := newFakeStore()
	release := make(chan struct{})
	store.programs.onCreate = func(Program) error {
		<-release
		return nil
	}
	svc := newTestService(store, nil, ServiceConfig{})

	csv := header +
		"Bio,BioC,Genetics,,,Q1,easy,,,,,,,\n" +
		"Bio,BioC,Genetics,,,Q2,easy,,,,,,,\n"
	runID, err := svc.StartImport(t.Context(), "q.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}

	ch, err := svc.SubscribeProgress(runID)
	if err != nil {
		t.Fatalf("SubscribeProgress() error = %v", err)
	}
	close(release)

	var last Progress
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case p, ok := <-ch:
			if !ok {
				done = true
				continue
			}
			last = p
		case <-timeout:
			t.Fatal("progress channel was not closed")
		}
	}

	if last.RunID != runID {
		t.Errorf("last.RunID = %q, want %q", last.RunID, runID)
	}
	if last.Phase != PhaseDone || last.Success != 2 {
		t.Errorf("last = %+v, want phase done with 2 successes", last)
	}

	status, err := svc.Lookup(t.Context(), runID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Result == nil || status.Result.Success != 2 {
		t.Errorf("status = %+v", status)
	}
}

func TestService_SlowSubscriberGetsFinalSnapshot(t *testing.T) {
	store := newFakeStore()
	release := make(chan struct{})
	store.programs.onCreate = func(Program) error {
		<-release
		return nil
	}
	svc := newTestService(store, nil, ServiceConfig{})

	const rows = 40
	var b strings.Builder
	b.WriteString(header)
	for i := range rows {
		fmt.Fprintf(&b, "Bio,BioC,Genetics,,,Q%d,easy,,,,,,,\n", i)
	}
	runID, err := svc.StartImport(t.Context(), "q.csv", []byte(b.String()))
	if err != nil {
		t.Fatal(err)
	}

	ch, err := svc.SubscribeProgress(runID)
	if err != nil {
		t.Fatalf("SubscribeProgress() error = %v", err)
	}
	close(release)

	// Read nothing until the run is over.
	if _, err := svc.GetResult(t.Context(), runID); err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}

	var last Progress
	for p := range ch {
		last = p
	}
	if last.Phase != PhaseDone {
		t.Errorf("last.Phase = %q, want %q", last.Phase, PhaseDone)
	}
	if last.Success != rows || last.Total != rows {
		t.Errorf("last = %d/%d, want %d/%d", last.Success, last.Total, rows, rows)
	}
}

func TestService_TooManyRuns(t *testing.T) {
	store := newFakeStore()
	release := make(chan struct{})
	store.programs.onCreate = func(Program) error {
		<-release
		return nil
	}
	svc := newTestService(store, nil, ServiceConfig{MaxConcurrent: 1, MaxWaitTime: 50 * time.Millisecond})
	defer close(release)

	csv := []byte(header + "Bio,BioC,Genetics,,,Q1,easy,,,,,,,\n")
	if _, err := svc.StartImport(t.Context(), "a.csv", csv); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartImport(t.Context(), "b.csv", csv); !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("second StartImport error = %v, want ErrTooManyRuns", err)
	}
	if got := svc.LimiterStatus().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestService_RunSurvivesCallerCancel(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, ServiceConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	csv := []byte(header + "Bio,BioC,Genetics,,,Q1,easy,,,,,,,\n")
	runID, err := svc.StartImport(ctx, "q.csv", csv)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	result, err := svc.GetResult(t.Context(), runID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success != 1 {
		t.Errorf("Success = %d, want 1", result.Success)
	}
}

func TestService_EvictedRunFallsBackToReports(t *testing.T) {
	reports := newFakeReports()
	svc := newTestService(newFakeStore(), reports, ServiceConfig{Retention: 10 * time.Millisecond})

	runID, err := svc.StartImport(t.Context(), "q.csv", []byte(header+"Bio,BioC,Genetics,,,Q1,easy,,,,,,,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetResult(t.Context(), runID); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := svc.GetProgress(runID); errors.Is(err, ErrRunNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run was not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	status, err := svc.Lookup(t.Context(), runID)
	if err != nil {
		t.Fatalf("Lookup() after eviction error = %v", err)
	}
	if status.Progress.Phase != PhaseDone || status.Result.Success != 1 {
		t.Errorf("status = %+v", status)
	}

	runs, err := svc.ListRuns(t.Context(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != runID {
		t.Errorf("ListRuns() = %+v", runs)
	}
}

func TestService_UnknownRun(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, ServiceConfig{})

	if _, err := svc.SubscribeProgress("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SubscribeProgress() error = %v", err)
	}
	if _, err := svc.Lookup(t.Context(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Lookup() error = %v", err)
	}
	if _, err := svc.GetResult(t.Context(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetResult() error = %v", err)
	}
}
