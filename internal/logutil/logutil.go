package logutil

import (
	"context"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logger"
)

type ctxKey struct{}

// WithLogger stores a request-scoped logger on the context.
func WithLogger(ctx context.Context, lg *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, lg)
}

// GetLogger returns the logger attached to ctx, falling back to the process
// logger.
func GetLogger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if lg, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && lg != nil {
			return lg
		}
	}
	return logger.L()
}
