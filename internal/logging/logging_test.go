package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected no logger, got %v", got)
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}

	if same := ContextWithLogger(ctx, nil); same != ctx {
		t.Fatal("expected nil logger to leave the context unchanged")
	}
}

func TestWith(t *testing.T) {
	t.Parallel()

	t.Run("extends the context logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ctx := ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "r-1"))
		ctx = With(ctx, nil, "user_id", "u-1")

		FromContext(ctx).Info("hello")
		out := buf.String()
		if !strings.Contains(out, "request_id=r-1") || !strings.Contains(out, "user_id=u-1") {
			t.Fatalf("expected both attributes, got %q", out)
		}
	})

	t.Run("falls back when the context has no logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ctx := With(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)), "trigger", "manual")

		FromContext(ctx).Info("sweep")
		if !strings.Contains(buf.String(), "trigger=manual") {
			t.Fatalf("expected fallback logger to be used, got %q", buf.String())
		}
	})
}
