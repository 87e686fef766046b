// Package logx contains slog helpers shared by the application packages.
package logx

import (
	"context"

	"golang.org/x/exp/slog"
)

// NoOp returns a handler that discards every record.
func NoOp() slog.Handler { return noop{} }

type noop struct{}

func (noop) Enabled(context.Context, slog.Level) bool  { return false }
func (noop) Handle(context.Context, slog.Record) error { return nil }
func (n noop) WithAttrs([]slog.Attr) slog.Handler      { return n }
func (n noop) WithGroup(string) slog.Handler           { return n }
