// Package testlogging implements logger that writes to testing.T log.
package testlogging

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/shellfs/shellfs/logging"
)

// Context returns a context with attached logger that emits all log entries to go testing.T log output.
func Context(t testing.TB) context.Context {
	return ContextWithLevel(t, zapcore.DebugLevel)
}

// ContextWithLevel returns a context with attached logger that emits all log entries with given log level or above.
func ContextWithLevel(t testing.TB, level zapcore.Level) context.Context {
	return logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return PrintfLevel(t.Logf, "["+module+"] ", level)
	})
}

// ContextWithCapture returns a context whose logger appends every formatted entry to the returned slice pointer.
func ContextWithCapture(t testing.TB) (context.Context, *[]string) {
	t.Helper()

	var lines []string

	ctx := logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return PrintfLevel(func(msg string, args ...any) {
			t.Logf(msg, args...)
			lines = append(lines, fmt.Sprintf(msg, args...))
		}, "["+module+"] ", zapcore.DebugLevel)
	})

	return ctx, &lines
}
