package runlog_test

import (
	"context"

	"threadcast/internal/script"
)

type stubGenerator struct{}

func (stubGenerator) GenerateFile(context.Context, string, string, script.FileOptions) (script.Document, error) {
	return script.Document{}, nil
}
