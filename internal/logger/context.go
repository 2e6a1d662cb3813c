package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger attaches the request-scoped logger that the search,
// duplicate and indexing services pick up with FromContext.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithListing tags the context logger with the listing being worked on.
// An empty id leaves ctx unchanged.
func WithListing(ctx context.Context, listingID string) context.Context {
	if listingID == "" {
		return ctx
	}
	return ContextWithLogger(ctx, FromContext(ctx).With(zap.String("listing_id", listingID)))
}

// FromContext returns the logger set by ContextWithLogger, or a no-op
// logger so engines used outside the HTTP server stay quiet.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
