package testlogging

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shellfs/shellfs/logging"
)

// Printf returns a logger that uses given printf-style function to print log output.
func Printf(printf func(msg string, args ...any), prefix string) logging.Logger {
	return PrintfLevel(printf, prefix, zapcore.DebugLevel)
}

// PrintfLevel returns a logger that uses given printf-style function to print log output for logs of a given level or above.
func PrintfLevel(printf func(msg string, args ...any), prefix string, level zapcore.Level) logging.Logger {
	writer := printfWriter{printf, prefix}

	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
				MessageKey:       "M",
				StacktraceKey:    "S",
				LineEnding:       zapcore.DefaultLineEnding,
				EncodeDuration:   zapcore.StringDurationEncoder,
				ConsoleSeparator: "\t",
			}),
			writer,
			level,
		),
	).Sugar()
}

type printfWriter struct {
	printf func(msg string, args ...any)
	prefix string
}

func (w printfWriter) Write(p []byte) (int, error) {
	n := len(p)

	w.printf("%s%s", w.prefix, bytes.TrimRight(p, "\n"))

	return n, nil
}

func (w printfWriter) Sync() error {
	return nil
}
