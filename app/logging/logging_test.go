package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestHandler_Handle(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := slog.New(Handler{Handler: slog.HandlerOptions{}.NewTextHandler(buf)}).
		With(slog.String("prefix", "test"))

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithStage(ctx, "fetching")
	ctx = ContextWithArticle(ctx, "https://example.com/blog/a")

	lg.InfoCtx(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "stage=fetching")
	assert.Contains(t, out, "article=https://example.com/blog/a")
	assert.Contains(t, out, "prefix=test")
}

func TestHandler_EmptyContext(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := slog.New(Handler{Handler: slog.HandlerOptions{}.NewTextHandler(buf)})

	lg.InfoCtx(context.Background(), "hello")

	assert.NotContains(t, buf.String(), "run_id")
	assert.NotContains(t, buf.String(), "article")
}
