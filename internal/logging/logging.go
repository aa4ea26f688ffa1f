// Package logging sets up the zerolog logger used by every build step.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type logKey struct{}

var nop = zerolog.Nop()

// Log returns the logger attached to ctx, or a logger that discards
// everything.
func Log(ctx context.Context) *zerolog.Logger {
	logger, ok := ctx.Value(logKey{}).(*zerolog.Logger)
	if !ok {
		return &nop
	}
	return logger
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// New returns a logger writing to w. Unless json is set, events are
// rendered for a terminal by ConsoleWriter.
func New(w io.Writer, level zerolog.Level, json bool) zerolog.Logger {
	if !json {
		w = NewConsoleWriter(w)
	}
	return zerolog.New(w).Level(level)
}

// Trace reports whether BERYLBUILD_TRACE is set. Errors then carry their
// eris stack traces.
func Trace() bool {
	return os.Getenv("BERYLBUILD_TRACE") != ""
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, Trace())
	}
}
