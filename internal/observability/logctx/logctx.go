// Package logctx carries the request or event scoped logger through a context
// so deeper layers log with the fields bound at the edge.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type ctxKey struct{}

// With returns ctx carrying logger. A nil logger leaves ctx as it is.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger stored on ctx, or nil.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(ctxKey{}).(observability.Logger)
	return l
}

// FromOr prefers the logger on ctx, then fallback, then a no-op logger. It
// never returns nil.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	switch {
	case From(ctx) != nil:
		return From(ctx)
	case fallback != nil:
		return fallback
	default:
		return observability.NopLogger()
	}
}

// Enrich binds fields to the logger FromOr picks and stores the result on the
// returned context.
func Enrich(ctx context.Context, fallback observability.Logger, fields ...observability.Field) (context.Context, observability.Logger) {
	l := FromOr(ctx, fallback).With(fields...)
	return With(ctx, l), l
}
