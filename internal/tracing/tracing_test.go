package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.json")

	if err := Init("aocrunner", "0.0.1", fname); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	ctx, parent := Start(context.Background(), "pipeline", attribute.String("mode", "run"))
	_, child := Start(ctx, "supervisor.run", attribute.Int("task", 1))
	End(child, errors.New("worker quit"))
	End(parent, nil)

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	data, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("no data written to trace file")
	}
}
