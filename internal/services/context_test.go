package services_test

import (
	"context"
	"testing"

	"threadcast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJobPath(ctx, "/data/alice/123")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if path, ok := services.JobPathFromContext(ctx); !ok || path != "/data/alice/123" {
		t.Fatalf("unexpected job path: %v %v", path, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobPath(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.JobPathFromContext(ctx); ok {
		t.Fatal("expected no job path value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
