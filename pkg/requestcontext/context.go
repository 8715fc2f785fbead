// Package requestcontext provides context accessors for run-scoped values.
//
// Usage in services (read values):
//
//	runID := requestcontext.RunID(ctx)
//
// Usage at the entry point (set values):
//
//	ctx = requestcontext.WithRunID(ctx, uuid.NewString())
package requestcontext

import "context"

type runIDKey struct{}

// ContextKeyRunID is exported for tests that need context.WithValue directly.
var ContextKeyRunID = runIDKey{}

// RunID retrieves the run correlation ID from the context.
func RunID(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithRunID injects a run correlation ID into the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}
