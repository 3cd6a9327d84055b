package runlog_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"threadcast/internal/batch"
	"threadcast/internal/runlog"
	"threadcast/internal/testsupport"
)

func mustOpen(t *testing.T) *runlog.Store {
	t.Helper()
	store, err := runlog.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("runlog.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	run := batch.RunInfo{ID: "run-1", Root: "/data", Style: "viral", Model: "m", Jobs: 2, StartedAt: started}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	ok := batch.NewJob("/data/a/thread_text.json", "/data/a/tiktok_script.json")
	_ = ok.Start(started)
	if err := store.RecordTransition(ctx, run.ID, ok); err != nil {
		t.Fatalf("RecordTransition running: %v", err)
	}
	_ = ok.Succeed(started.Add(time.Second))
	if err := store.RecordTransition(ctx, run.ID, ok); err != nil {
		t.Fatalf("RecordTransition succeeded: %v", err)
	}

	bad := batch.NewJob("/data/b/thread_text.json", "/data/b/tiktok_script.json")
	_ = bad.Start(started)
	_ = bad.Fail(started.Add(2*time.Second), errors.New("boom"))
	if err := store.RecordTransition(ctx, run.ID, bad); err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}

	stats := batch.Statistics{Succeeded: 1, Failed: 1, TotalWallTime: 2500 * time.Millisecond}
	if err := store.FinishRun(ctx, run.ID, stats, started.Add(3*time.Second)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.Run(ctx, run.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !got.Finished() || got.Succeeded != 1 || got.Failed != 1 || got.JobCount != 2 {
		t.Fatalf("run = %+v", got)
	}
	if got.WallTime != 2500*time.Millisecond || !got.StartedAt.Equal(started) {
		t.Fatalf("run timing = %+v", got)
	}

	jobs, err := store.JobsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("JobsForRun: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].Status != batch.StatusSucceeded || jobs[0].FinishedAt.IsZero() {
		t.Fatalf("job a = %+v", jobs[0])
	}
	if jobs[1].Status != batch.StatusFailed || jobs[1].ErrorKind != "internal" || jobs[1].ErrorMessage != "boom" {
		t.Fatalf("job b = %+v", jobs[1])
	}
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := batch.RunInfo{ID: fmt.Sprintf("run-%d", i), Root: "/r", Style: "engaging", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Finished() {
		t.Fatal("unfinished run reported as finished")
	}
}

func TestRunNotFound(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()
	if _, err := store.Run(ctx, "missing"); !errors.Is(err, runlog.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "missing", batch.Statistics{}, time.Now()); !errors.Is(err, runlog.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from FinishRun, got %v", err)
	}
}

func TestOpenPathReopensExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runlog.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.BeginRun(context.Background(), batch.RunInfo{ID: "keep", Root: "/r", Style: "viral", StartedAt: time.Now()}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_ = store.Close()

	reopened, err := runlog.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Run(context.Background(), "keep"); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestStoreRecordsOrchestratorRun(t *testing.T) {
	store := mustOpen(t)
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		testsupport.WriteThread(t, filepath.Join(root, fmt.Sprintf("t%d", i)), testsupport.NewThread(fmt.Sprint(i), 1))
	}

	orch := batch.New(stubGenerator{}, batch.WithRecorder(store))
	result, err := orch.Run(context.Background(), root, batch.Options{Style: "viral", TargetDurationSeconds: 30})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := store.Run(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Run lookup: %v", err)
	}
	if run.Succeeded != 3 || run.JobCount != 3 || run.Root != root {
		t.Fatalf("recorded run = %+v", run)
	}
	jobs, err := store.JobsForRun(context.Background(), result.RunID)
	if err != nil || len(jobs) != 3 {
		t.Fatalf("jobs = %+v err=%v", jobs, err)
	}
}
