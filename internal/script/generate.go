package script

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"threadcast/internal/extract"
	"threadcast/internal/fileutil"
	"threadcast/internal/logging"
	"threadcast/internal/prompt"
	"threadcast/internal/services"
	"threadcast/internal/services/llm"
	"threadcast/internal/thread"
)

// Generator runs the single-item pipeline against one CompletionClient.
// It is safe for concurrent use when the client is.
type Generator struct {
	client    llm.CompletionClient
	logger    *slog.Logger
	now       func() time.Time
	tolerance float64
	budget    int
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithNow overrides the clock used for generated_at.
func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithTolerance sets the duration tolerance passed to Assemble.
func WithTolerance(tolerance float64) GeneratorOption {
	return func(g *Generator) {
		if tolerance > 0 {
			g.tolerance = tolerance
		}
	}
}

// WithBudget sets the rune budget of the flattened thread.
func WithBudget(budget int) GeneratorOption {
	return func(g *Generator) {
		if budget > 0 {
			g.budget = budget
		}
	}
}

// NewGenerator constructs a Generator.
func NewGenerator(client llm.CompletionClient, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:    client,
		logger:    logging.NewNop(),
		now:       time.Now,
		tolerance: DefaultTolerance,
		budget:    extract.DefaultBudget,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "script")
	return g
}

// Generate produces a Document for req. Provider failures are returned as
// provider errors; unparseable completions are not errors and yield a
// degraded document.
func (g *Generator) Generate(ctx context.Context, req Request) (Document, error) {
	if g == nil || g.client == nil {
		return Document{}, services.Wrap(services.ErrConfiguration, "script", "generate", "completion client unavailable", nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, g.logger)

	flattened := extract.FlattenWithBudget(req.Thread, req.IncludeReplies, g.budget)
	payload, err := prompt.Build(flattened, req.Style, req.TargetDurationSeconds)
	if err != nil {
		return Document{}, err
	}

	started := time.Now()
	raw, err := g.client.Complete(ctx, payload, req.ModelID)
	if err != nil {
		if !errors.Is(err, services.ErrProvider) {
			err = services.Wrap(services.ErrProvider, "script", "complete", "completion request failed", err)
		}
		return Document{}, err
	}

	interpretation := Interpret(raw)
	doc := Assemble(interpretation, req, AssembleOptions{Tolerance: g.tolerance, Now: g.now})

	attrs := []logging.Attr{
		logging.String("thread_id", req.Thread.ID),
		logging.String("style", req.Style.String()),
		logging.String("interpretation", interpretation.Kind.String()),
		logging.Duration("completion_latency", time.Since(started)),
		logging.Int("flattened_runes", len([]rune(flattened))),
	}
	if doc.Degraded {
		logging.WarnWithContext(logger, "provider output could not be parsed", "script_degraded",
			append(attrs,
				logging.String(logging.FieldErrorHint, "inspect raw_text in the output file or retry with another model"),
				logging.String(logging.FieldImpact, "script sections are empty"),
			)...)
	} else {
		logger.Info("script generated", logging.Args(append(attrs, logging.Int("warnings", len(doc.Metadata.Warnings)))...)...)
	}
	return doc, nil
}

// FileOptions carries the per-file generation parameters.
type FileOptions struct {
	Style                 string
	TargetDurationSeconds int
	ModelID               string
	IncludeReplies        bool
}

// GenerateFile loads the thread at inputPath, generates a script and writes it
// atomically to outputPath. The document is returned even when only the write
// failed.
func (g *Generator) GenerateFile(ctx context.Context, inputPath, outputPath string, opts FileOptions) (Document, error) {
	doc, err := thread.Load(inputPath)
	if err != nil {
		return Document{}, err
	}
	req, err := NewRequest(doc, opts.Style, opts.TargetDurationSeconds, opts.ModelID, opts.IncludeReplies)
	if err != nil {
		return Document{}, err
	}
	out, err := g.Generate(services.WithJobPath(ctx, inputPath), req)
	if err != nil {
		return Document{}, err
	}
	if err := Write(outputPath, out); err != nil {
		return out, err
	}
	return out, nil
}

// Write encodes doc as indented JSON and replaces path atomically.
func Write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "script", "encode", "marshal script document", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "script", "write", path, err)
	}
	return nil
}
