package batch_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"threadcast/internal/batch"
	"threadcast/internal/script"
	"threadcast/internal/services"
	"threadcast/internal/testsupport"
)

func defaultOptions() batch.Options {
	return batch.Options{
		Style:                 "educational",
		TargetDurationSeconds: 60,
		ModelID:               "test/model",
		IncludeReplies:        true,
		MaxConcurrent:         3,
	}
}

// seedRoot writes n thread directories; the directory at index bad (if >= 0)
// receives a malformed input file.
func seedRoot(t *testing.T, n, bad int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		dir := filepath.Join(root, "user", fmt.Sprintf("thread%02d", i))
		if i == bad {
			testsupport.WriteFile(t, filepath.Join(dir, batch.DefaultInputFileName), []byte("{broken"))
			continue
		}
		testsupport.WriteThread(t, dir, testsupport.NewThread(fmt.Sprintf("%d", i), 2))
	}
	return root
}

func TestRunIsolatesFailures(t *testing.T) {
	root := seedRoot(t, 10, 4)
	client := &testsupport.FakeCompletion{}
	orch := batch.New(script.NewGenerator(client))

	result, err := orch.Run(context.Background(), root, defaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := result.Statistics
	if stats.Succeeded != 9 || stats.Failed != 1 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.SampleErrors) != 1 || stats.SampleErrors[0].Kind != services.KindInput {
		t.Fatalf("sample errors = %+v", stats.SampleErrors)
	}
	if client.Calls() != 9 {
		t.Fatalf("completion calls = %d, want 9", client.Calls())
	}
	if result.RunID == "" || len(result.Jobs) != 10 {
		t.Fatalf("result = %+v", result)
	}
	for _, job := range result.Jobs {
		if !job.Status.Terminal() {
			t.Fatalf("job %s left in %s", job.SourcePath, job.Status)
		}
	}
}

func TestRunSkipsExistingOutputsUnlessForced(t *testing.T) {
	root := seedRoot(t, 10, 4)
	client := &testsupport.FakeCompletion{}
	orch := batch.New(script.NewGenerator(client))

	if _, err := orch.Run(context.Background(), root, defaultOptions()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := orch.Run(context.Background(), root, defaultOptions())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if s := second.Statistics; s.Skipped != 9 || s.Failed != 1 || s.Succeeded != 0 {
		t.Fatalf("second run stats = %+v", s)
	}
	if client.Calls() != 9 {
		t.Fatalf("skipped jobs must not call the provider, calls = %d", client.Calls())
	}

	forced := defaultOptions()
	forced.Force = true
	third, err := orch.Run(context.Background(), root, forced)
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if s := third.Statistics; s.Succeeded != 9 || s.Failed != 1 || s.Skipped != 0 {
		t.Fatalf("forced run stats = %+v", s)
	}
	if client.Calls() != 18 {
		t.Fatalf("calls after force = %d, want 18", client.Calls())
	}
}

type gaugeGenerator struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (g *gaugeGenerator) GenerateFile(ctx context.Context, _, _ string, _ script.FileOptions) (script.Document, error) {
	g.calls.Add(1)
	current := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(g.delay)
	return script.Document{}, nil
}

func TestRunRespectsMaxConcurrent(t *testing.T) {
	root := seedRoot(t, 12, -1)
	gen := &gaugeGenerator{delay: 20 * time.Millisecond}
	opts := defaultOptions()
	opts.MaxConcurrent = 3

	result, err := batch.New(gen).Run(context.Background(), root, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Statistics.Succeeded != 12 {
		t.Fatalf("stats = %+v", result.Statistics)
	}
	if peak := gen.peak.Load(); peak > 3 || peak < 1 {
		t.Fatalf("peak concurrency = %d, want 1..3", peak)
	}
}

type panicGenerator struct{ target string }

func (p panicGenerator) GenerateFile(_ context.Context, in, _ string, _ script.FileOptions) (script.Document, error) {
	if filepath.Base(filepath.Dir(in)) == p.target {
		panic("unexpected nil")
	}
	return script.Document{}, nil
}

func TestRunRecoversPanics(t *testing.T) {
	root := seedRoot(t, 3, -1)
	result, err := batch.New(panicGenerator{target: "thread01"}).Run(context.Background(), root, defaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s := result.Statistics; s.Succeeded != 2 || s.Failed != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if kind := result.Statistics.SampleErrors[0].Kind; kind != services.KindInternal {
		t.Fatalf("panic kind = %q, want internal", kind)
	}
}

func TestRunRootFaults(t *testing.T) {
	orch := batch.New(&gaugeGenerator{})

	_, err := orch.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), defaultOptions())
	if !errors.Is(err, batch.ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}

	bad := defaultOptions()
	bad.Style = "mumbled"
	if _, err := orch.Run(context.Background(), t.TempDir(), bad); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	bad = defaultOptions()
	bad.MaxConcurrent = -1
	if _, err := orch.Run(context.Background(), t.TempDir(), bad); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for max_concurrent, got %v", err)
	}
}

func TestRunRefusesLockedRoot(t *testing.T) {
	root := seedRoot(t, 1, -1)
	held := flock.New(filepath.Join(root, batch.LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	gen := &gaugeGenerator{}
	_, err = batch.New(gen).Run(context.Background(), root, defaultOptions())
	if !errors.Is(err, batch.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if gen.calls.Load() != 0 {
		t.Fatal("locked run must not process jobs")
	}
}

type cancelingGenerator struct {
	cancel context.CancelFunc
	once   sync.Once
	errs   chan error
}

func (c *cancelingGenerator) GenerateFile(ctx context.Context, _, _ string, _ script.FileOptions) (script.Document, error) {
	c.once.Do(c.cancel)
	time.Sleep(10 * time.Millisecond)
	c.errs <- ctx.Err()
	return script.Document{}, nil
}

func TestRunCancellationAbandonsUnstartedJobs(t *testing.T) {
	root := seedRoot(t, 5, -1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &cancelingGenerator{cancel: cancel, errs: make(chan error, 5)}
	opts := defaultOptions()
	opts.MaxConcurrent = 1

	result, err := batch.New(gen).Run(ctx, root, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	s := result.Statistics
	if s.Succeeded != 1 || s.Abandoned != 4 || s.Failed != 0 {
		t.Fatalf("stats = %+v", s)
	}
	if len(result.Abandoned) != 4 {
		t.Fatalf("abandoned = %v", result.Abandoned)
	}
	if inflight := <-gen.errs; inflight != nil {
		t.Fatalf("in-flight job saw cancellation: %v", inflight)
	}
}

type memoryRecorder struct {
	mu          sync.Mutex
	began       []batch.RunInfo
	transitions []batch.JobStatus
	finished    []batch.Statistics
}

func (m *memoryRecorder) BeginRun(_ context.Context, run batch.RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.began = append(m.began, run)
	return nil
}

func (m *memoryRecorder) RecordTransition(_ context.Context, _ string, job batch.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, job.Status)
	return errors.New("disk full")
}

func (m *memoryRecorder) FinishRun(_ context.Context, _ string, stats batch.Statistics, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, stats)
	return nil
}

type countingNotifier struct{ calls atomic.Int32 }

func (c *countingNotifier) NotifyBatchCompleted(context.Context, string, batch.Statistics) error {
	c.calls.Add(1)
	return nil
}

func TestRunReportsToRecorderAndNotifier(t *testing.T) {
	root := seedRoot(t, 2, -1)
	rec := &memoryRecorder{}
	notifier := &countingNotifier{}
	orch := batch.New(&gaugeGenerator{}, batch.WithRecorder(rec), batch.WithNotifier(notifier))

	result, err := orch.Run(context.Background(), root, defaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Statistics.Succeeded != 2 {
		t.Fatalf("recorder errors must not fail jobs: %+v", result.Statistics)
	}
	if len(rec.began) != 1 || rec.began[0].Jobs != 2 || rec.began[0].ID != result.RunID {
		t.Fatalf("began = %+v", rec.began)
	}
	// Each job reports running then succeeded.
	if len(rec.transitions) != 4 {
		t.Fatalf("transitions = %v", rec.transitions)
	}
	if len(rec.finished) != 1 || rec.finished[0].Succeeded != 2 {
		t.Fatalf("finished = %+v", rec.finished)
	}
	if notifier.calls.Load() != 1 {
		t.Fatalf("notifier calls = %d", notifier.calls.Load())
	}
}
