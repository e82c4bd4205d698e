package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextValues(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-1")
	ctx = WithStage(ctx, "load")

	lc := GetContext(ctx)
	assert.Equal(t, "build-1", lc.BuildID)
	assert.Equal(t, "load", lc.Stage)

	// Overwriting a stage keeps the build ID.
	ctx = WithStage(ctx, "write")
	assert.Equal(t, LogContext{BuildID: "build-1", Stage: "write"}, GetContext(ctx))
}

func TestEmptyContext(t *testing.T) {
	assert.Equal(t, LogContext{}, GetContext(context.Background()))
}

func TestLogHelpersIncludeContext(t *testing.T) {
	buf := captureDefault(t)
	ctx := WithStage(WithBuildID(context.Background(), "b-42"), "render")

	InfoContext(ctx, "rendered", slog.String("path", "a.md"))
	WarnContext(ctx, "slow")
	ErrorContext(ctx, "broken")
	DebugContext(ctx, "detail")

	out := buf.String()
	assert.Contains(t, out, "build_id=b-42")
	assert.Contains(t, out, "stage=render")
	assert.Contains(t, out, "path=a.md")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "level=DEBUG")
}
