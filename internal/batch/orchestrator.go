package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"threadcast/internal/fileutil"
	"threadcast/internal/logging"
	"threadcast/internal/prompt"
	"threadcast/internal/script"
	"threadcast/internal/services"
)

const (
	DefaultInputFileName  = "thread_text.json"
	DefaultOutputFileName = "tiktok_script.json"
	DefaultMaxConcurrent  = 3
	// LockFileName is created in the root while a run holds it.
	LockFileName = ".threadcast.lock"
)

// ErrLocked is returned when another run already holds the root lock.
var ErrLocked = errors.New("batch root is locked by another run")

// Generator is the single-item pipeline used for each job.
type Generator interface {
	GenerateFile(ctx context.Context, inputPath, outputPath string, opts script.FileOptions) (script.Document, error)
}

// RunInfo describes a run when it begins.
type RunInfo struct {
	ID        string
	Root      string
	Style     string
	Model     string
	Jobs      int
	StartedAt time.Time
}

// Recorder observes a run. Errors are logged and never affect jobs.
type Recorder interface {
	BeginRun(ctx context.Context, run RunInfo) error
	RecordTransition(ctx context.Context, runID string, job Job) error
	FinishRun(ctx context.Context, runID string, stats Statistics, finishedAt time.Time) error
}

// Notifier is told when a run finishes.
type Notifier interface {
	NotifyBatchCompleted(ctx context.Context, root string, stats Statistics) error
}

// Options configures one run.
type Options struct {
	Style                 string
	TargetDurationSeconds int
	ModelID               string
	IncludeReplies        bool
	Force                 bool
	MaxConcurrent         int
	InputFileName         string
	OutputFileName        string
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.InputFileName == "" {
		o.InputFileName = DefaultInputFileName
	}
	if o.OutputFileName == "" {
		o.OutputFileName = DefaultOutputFileName
	}
	return o
}

// Validate checks the options once before any worker starts.
func (o Options) Validate() error {
	if _, err := prompt.ParseStyle(o.Style); err != nil {
		return err
	}
	if o.TargetDurationSeconds <= 0 {
		return services.Wrap(services.ErrConfiguration, "batch", "options", "target duration must be positive", nil)
	}
	if o.MaxConcurrent <= 0 {
		return services.Wrap(services.ErrConfiguration, "batch", "options", "max_concurrent must be positive", nil)
	}
	if o.InputFileName == o.OutputFileName {
		return services.Wrap(services.ErrConfiguration, "batch", "options", "input and output file names must differ", nil)
	}
	return nil
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	Root       string
	Jobs       []Job
	Statistics Statistics
	// Abandoned lists source paths never started because the run was cancelled.
	Abandoned []string
}

// Orchestrator runs batches.
type Orchestrator struct {
	generator Generator
	logger    *slog.Logger
	recorder  Recorder
	notifier  Notifier
	now       func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder attaches a run recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) { o.recorder = recorder }
}

// WithNotifier attaches a completion notifier.
func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an Orchestrator around generator.
func New(generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "batch")
	return o
}

type eventKind int

const (
	eventStarted eventKind = iota
	eventFinished
	eventAbandoned
)

type target struct {
	source string
	output string
}

type jobEvent struct {
	index int
	kind  eventKind
	at    time.Time
	err   error
}

// Run processes every job under root. The returned error is non-nil only for
// root-level faults, or ctx.Err() when cancellation left jobs unstarted; the
// Result is populated in the latter case.
func (o *Orchestrator) Run(ctx context.Context, root string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if o.generator == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "batch", "run", "generator unavailable", nil)
	}

	jobs, err := Discover(root, opts.InputFileName, opts.OutputFileName)
	if err != nil {
		return Result{}, err
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, "batch", "lock", "acquire root lock", err)
	}
	if !locked {
		return Result{}, fmt.Errorf("%w: %s", ErrLocked, root)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release root lock", logging.Error(err), logging.String("root", root))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	started := o.now()
	// Ledger and notification writes outlive cancellation of the run itself.
	bookkeeping := context.WithoutCancel(ctx)

	o.beginRun(bookkeeping, logger, RunInfo{
		ID: runID, Root: root, Style: opts.Style, Model: opts.ModelID, Jobs: len(jobs), StartedAt: started,
	})
	logger.Info("batch run started",
		logging.String("root", root),
		logging.Int("jobs", len(jobs)),
		logging.Int("max_concurrent", opts.MaxConcurrent),
		logging.Bool("force", opts.Force),
	)

	result := Result{RunID: runID, Root: root, Jobs: jobs, Abandoned: []string{}}
	stats := Statistics{SampleErrors: []ErrorDetail{}}

	pending := make([]int, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if fileutil.Exists(job.OutputPath) {
			if err := job.Skip(started); err == nil && opts.Force {
				job.Reset()
			}
		}
		if job.Status == StatusSkipped {
			stats.observe(*job)
			o.record(bookkeeping, logger, runID, *job)
			logger.Debug("job skipped; output exists", logging.String(logging.FieldJobPath, job.SourcePath))
			continue
		}
		pending = append(pending, i)
	}

	queue := make(chan int, len(pending))
	for _, idx := range pending {
		queue <- idx
	}
	close(queue)

	targets := make([]target, len(jobs))
	for i, job := range jobs {
		targets[i] = target{source: job.SourcePath, output: job.OutputPath}
	}

	events := make(chan jobEvent)
	var wg sync.WaitGroup
	workers := min(opts.MaxConcurrent, max(len(pending), 1))
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go o.worker(ctx, &wg, targets, queue, events, opts)
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	// Single writer: only this loop mutates jobs and stats once workers run.
	for ev := range events {
		job := &jobs[ev.index]
		switch ev.kind {
		case eventStarted:
			if err := job.Start(ev.at); err != nil {
				logger.Error("job transition rejected", logging.Error(err))
				continue
			}
			o.record(bookkeeping, logger, runID, *job)
		case eventFinished:
			o.finishJob(logger, job, ev)
			stats.observe(*job)
			o.record(bookkeeping, logger, runID, *job)
		case eventAbandoned:
			stats.Abandoned++
			result.Abandoned = append(result.Abandoned, job.SourcePath)
		}
	}

	stats.TotalWallTime = o.now().Sub(started)
	result.Statistics = stats
	result.Jobs = jobs

	o.finishRun(bookkeeping, logger, runID, stats)
	logger.Info("batch run finished",
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("skipped", stats.Skipped),
		logging.Int("failed", stats.Failed),
		logging.Int("abandoned", stats.Abandoned),
		logging.Duration("wall_time", stats.TotalWallTime),
	)
	if o.notifier != nil {
		if err := o.notifier.NotifyBatchCompleted(bookkeeping, root, stats); err != nil {
			logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "no completion notification was sent"),
			)
		}
	}

	if stats.Abandoned > 0 {
		return result, ctx.Err()
	}
	return result, nil
}

func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, targets []target, queue <-chan int, events chan<- jobEvent, opts Options) {
	defer wg.Done()
	fileOpts := script.FileOptions{
		Style:                 opts.Style,
		TargetDurationSeconds: opts.TargetDurationSeconds,
		ModelID:               opts.ModelID,
		IncludeReplies:        opts.IncludeReplies,
	}
	for idx := range queue {
		if ctx.Err() != nil {
			events <- jobEvent{index: idx, kind: eventAbandoned}
			continue
		}
		t := targets[idx]
		events <- jobEvent{index: idx, kind: eventStarted, at: o.now()}

		jobCtx := services.WithJobPath(context.WithoutCancel(ctx), t.source)
		err := o.runJob(jobCtx, t.source, t.output, fileOpts)
		events <- jobEvent{index: idx, kind: eventFinished, at: o.now(), err: err}
	}
}

// runJob converts a panic in the pipeline into an internal error.
func (o *Orchestrator) runJob(ctx context.Context, source, output string, opts script.FileOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			o.logger.Error("job panicked",
				logging.String(logging.FieldJobPath, source),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "job_panic"),
			)
		}
	}()
	_, err = o.generator.GenerateFile(ctx, source, output, opts)
	return err
}

func (o *Orchestrator) finishJob(logger *slog.Logger, job *Job, ev jobEvent) {
	jobLogger := logger.With(logging.String(logging.FieldJobPath, job.SourcePath))
	if ev.err == nil {
		if err := job.Succeed(ev.at); err != nil {
			jobLogger.Error("job transition rejected", logging.Error(err))
			return
		}
		jobLogger.Info("job succeeded", logging.Duration("duration", job.Duration()))
		return
	}
	if err := job.Fail(ev.at, ev.err); err != nil {
		jobLogger.Error("job transition rejected", logging.Error(err))
		return
	}
	logging.ErrorWithContext(jobLogger, "job failed", "job_failed",
		logging.Error(ev.err),
		logging.String(logging.FieldErrorKind, job.Error.Kind),
		logging.String(logging.FieldErrorHint, hintFor(job.Error.Kind)),
	)
}

func hintFor(kind string) string {
	switch kind {
	case services.KindInput:
		return "check the thread_text.json file for this job"
	case services.KindConfiguration:
		return "check style, duration and model settings"
	case services.KindProvider:
		return "check provider credentials, quota and model id"
	case services.KindIO:
		return "check permissions on the job directory"
	default:
		return "rerun with --log-level debug and inspect the stack trace"
	}
}

func (o *Orchestrator) beginRun(ctx context.Context, logger *slog.Logger, run RunInfo) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.BeginRun(ctx, run); err != nil {
		logRecorderFailure(logger, "begin run", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, runID string, job Job) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordTransition(ctx, runID, job); err != nil {
		logRecorderFailure(logger, "record transition", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, logger *slog.Logger, runID string, stats Statistics) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.FinishRun(ctx, runID, stats, o.now()); err != nil {
		logRecorderFailure(logger, "finish run", err)
	}
}

func logRecorderFailure(logger *slog.Logger, op string, err error) {
	logging.WarnWithContext(logger, "run ledger update failed", "ledger_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
		logging.String(logging.FieldImpact, "run history will be incomplete"),
	)
}
