// Package logging provides loggers for shellfs components.
package logging

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logger used throughout shellfs.
type Logger = *zap.SugaredLogger

// LoggerFactory returns a logger for a given module.
type LoggerFactory func(module string) Logger

// Module returns a function that returns a logger for a given module when provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l := ctx.Value(loggerCacheKey); l != nil {
			//nolint:forcetypeassert
			return l.(*loggerCache).getLogger(module)
		}

		return NullLogger
	}
}

// ToWriter returns LoggerFactory that uses given writer for log output (unadorned).
func ToWriter(w io.Writer) LoggerFactory {
	return func(module string) Logger {
		return zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
				MessageKey:       "m",
				LineEnding:       zapcore.DefaultLineEnding,
				ConsoleSeparator: "\t",
			}),
			zapcore.AddSync(w),
			zap.DebugLevel,
		)).Sugar()
	}
}
