// Package obslog carries a zerolog.Logger through a context.Context, the
// same context-carried-logger idiom the rest of this module's ancestry
// uses, scaled down for a library: no hostname/executable banner, no
// global level mutation. Callers that want request-scoped logging attach
// one with WithLogger; everyone else gets the zerolog global logger.
package obslog

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

// Ctx returns the logger attached to ctx, or the zerolog global logger
// if ctx carries none.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
			return logger
		}
	}
	return &log.Logger
}

// WithLogger attaches logger to ctx so downstream components that call
// Ctx pick it up.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
