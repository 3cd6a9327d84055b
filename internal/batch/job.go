package batch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"threadcast/internal/services"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusSkipped   JobStatus = "skipped"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed without Reset.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[JobStatus][]JobStatus{
	StatusPending: {StatusRunning, StatusSkipped},
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// ErrInvalidTransition is returned when a job is moved out of order.
var ErrInvalidTransition = errors.New("invalid job transition")

// ErrorDetail is the reportable form of a job failure.
type ErrorDetail struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	SourcePath string `json:"source_path"`
}

// NewErrorDetail classifies err for reporting.
func NewErrorDetail(sourcePath string, err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	return &ErrorDetail{
		Kind:       services.Kind(err),
		Message:    strings.TrimSpace(err.Error()),
		SourcePath: sourcePath,
	}
}

// Job is one thread directory processed by a run.
type Job struct {
	SourcePath string       `json:"source_path"`
	OutputPath string       `json:"output_path"`
	Status     JobStatus    `json:"status"`
	Error      *ErrorDetail `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// NewJob returns a pending job.
func NewJob(sourcePath, outputPath string) Job {
	return Job{SourcePath: sourcePath, OutputPath: outputPath, Status: StatusPending}
}

func (j *Job) transition(to JobStatus) error {
	for _, next := range allowedTransitions[j.Status] {
		if next == to {
			j.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, j.Status, to, j.SourcePath)
}

// Start moves a pending job to running.
func (j *Job) Start(at time.Time) error {
	if err := j.transition(StatusRunning); err != nil {
		return err
	}
	j.StartedAt = at
	return nil
}

// Succeed moves a running job to succeeded.
func (j *Job) Succeed(at time.Time) error {
	if err := j.transition(StatusSucceeded); err != nil {
		return err
	}
	j.FinishedAt = at
	return nil
}

// Fail moves a running job to failed and records the cause.
func (j *Job) Fail(at time.Time, err error) error {
	if terr := j.transition(StatusFailed); terr != nil {
		return terr
	}
	j.FinishedAt = at
	j.Error = NewErrorDetail(j.SourcePath, err)
	return nil
}

// Skip marks a pending job as already done.
func (j *Job) Skip(at time.Time) error {
	if err := j.transition(StatusSkipped); err != nil {
		return err
	}
	j.StartedAt = at
	j.FinishedAt = at
	return nil
}

// Reset returns a terminal job to pending. It is the only way back from a
// terminal state and is used when a run is forced.
func (j *Job) Reset() {
	if !j.Status.Terminal() {
		return
	}
	j.Status = StatusPending
	j.Error = nil
	j.StartedAt = time.Time{}
	j.FinishedAt = time.Time{}
}

// Duration is the wall time between start and finish.
func (j Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// MaxSampleErrors caps Statistics.SampleErrors.
const MaxSampleErrors = 10

// Statistics summarizes a run.
type Statistics struct {
	Succeeded     int           `json:"succeeded"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Abandoned     int           `json:"abandoned"`
	TotalWallTime time.Duration `json:"total_wall_time"`
	SampleErrors  []ErrorDetail `json:"sample_errors"`
}

// Total is the number of jobs that reached a terminal state.
func (s Statistics) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

func (s *Statistics) observe(job Job) {
	switch job.Status {
	case StatusSucceeded:
		s.Succeeded++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
		if job.Error != nil && len(s.SampleErrors) < MaxSampleErrors {
			s.SampleErrors = append(s.SampleErrors, *job.Error)
		}
	}
}
