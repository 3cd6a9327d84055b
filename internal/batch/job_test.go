package batch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"threadcast/internal/services"
)

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	job := NewJob("/in", "/out")

	if err := job.Succeed(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> succeeded should be rejected, got %v", err)
	}
	if err := job.Start(now); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := job.Skip(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("running -> skipped should be rejected, got %v", err)
	}
	cause := services.Wrap(services.ErrProvider, "llm", "complete", "exhausted", nil)
	if err := job.Fail(now.Add(2*time.Second), cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if job.Error == nil || job.Error.Kind != services.KindProvider || job.Error.SourcePath != "/in" {
		t.Fatalf("error detail = %+v", job.Error)
	}
	if job.Duration() != 2*time.Second {
		t.Fatalf("duration = %v", job.Duration())
	}
	if err := job.Start(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal job restarted without reset: %v", err)
	}

	job.Reset()
	if job.Status != StatusPending || job.Error != nil || !job.StartedAt.IsZero() {
		t.Fatalf("reset job = %+v", job)
	}
	if err := job.Start(now); err != nil {
		t.Fatalf("Start after reset: %v", err)
	}
}

func TestResetIgnoresNonTerminal(t *testing.T) {
	job := NewJob("/in", "/out")
	_ = job.Start(time.Now())
	job.Reset()
	if job.Status != StatusRunning {
		t.Fatalf("running job was reset: %v", job.Status)
	}
}

func TestStatisticsCapsSampleErrors(t *testing.T) {
	var stats Statistics
	for i := 0; i < MaxSampleErrors+5; i++ {
		job := NewJob(fmt.Sprintf("/in/%d", i), "/out")
		_ = job.Start(time.Now())
		_ = job.Fail(time.Now(), errors.New("boom"))
		stats.observe(job)
	}
	if stats.Failed != MaxSampleErrors+5 {
		t.Fatalf("failed = %d", stats.Failed)
	}
	if len(stats.SampleErrors) != MaxSampleErrors {
		t.Fatalf("sample errors = %d, want %d", len(stats.SampleErrors), MaxSampleErrors)
	}
	if stats.SampleErrors[0].Kind != services.KindInternal {
		t.Fatalf("unclassified errors should be internal, got %q", stats.SampleErrors[0].Kind)
	}
}
