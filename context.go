package gatekit

import (
	"context"

	"github.com/gatekit/gatekit-go/runctx"
)

type contextKey int

const (
	ctxKeyRunContext contextKey = iota
	ctxKeySessionID
)

// AttachRunContext returns a context carrying the run-scoped user context.
// Tools retrieve it with [RunContextFrom]. The [WithRunContext] option does
// this automatically for every run.
func AttachRunContext(ctx context.Context, rc *runctx.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRunContext, rc)
}

// RunContextFrom returns the run-scoped user context, or nil if none is set.
func RunContextFrom(ctx context.Context) *runctx.Context {
	if v, ok := ctx.Value(ctxKeyRunContext).(*runctx.Context); ok {
		return v
	}
	return nil
}

// WithSessionID returns a context with the session identifier set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// SessionIDFrom returns the session identifier from context, or empty string.
func SessionIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}
