// Package logging enriches log records with the pipeline state carried in
// the context.
package logging

import (
	"context"

	"golang.org/x/exp/slog"
)

type (
	runIDKey   struct{}
	articleKey struct{}
	stageKey   struct{}
)

// ContextWithRunID returns a new context with the given run ID.
func ContextWithRunID(parent context.Context, runID string) context.Context {
	return context.WithValue(parent, runIDKey{}, runID)
}

// RunIDFromContext returns run id from context.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey{}).(string)
	return v, ok
}

// ContextWithArticle returns a new context with the URL of the article
// being processed.
func ContextWithArticle(parent context.Context, url string) context.Context {
	return context.WithValue(parent, articleKey{}, url)
}

// ArticleFromContext returns article URL from context.
func ArticleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(articleKey{}).(string)
	return v, ok
}

// ContextWithStage returns a new context with the pipeline stage name.
func ContextWithStage(parent context.Context, stage string) context.Context {
	return context.WithValue(parent, stageKey{}, stage)
}

// StageFromContext returns pipeline stage from context.
func StageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(stageKey{}).(string)
	return v, ok
}

// Handler is a middleware for logging pipeline state from context.
type Handler struct {
	slog.Handler
}

// Handle implements slog.Handler interface.
func (h Handler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, rec)
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		rec.AddAttrs(slog.String("run_id", runID))
	}
	if stage, ok := StageFromContext(ctx); ok {
		rec.AddAttrs(slog.String("stage", stage))
	}
	if u, ok := ArticleFromContext(ctx); ok {
		rec.AddAttrs(slog.String("article", u))
	}
	return h.Handler.Handle(ctx, rec)
}

// WithGroup returns a new Handler with the given group.
func (h Handler) WithGroup(group string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(group)}
}

// WithAttrs returns a new Handler with the given attributes.
func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}
