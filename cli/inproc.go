package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shellfs/shellfs/logging"
)

// RunSubcommand executes the subcommand asynchronously in current process
// with flags in an isolated CLI environment and returns standard output and standard error.
func (c *App) RunSubcommand(ctx context.Context, kpapp *kingpin.Application, argsAndFlags []string) (stdout, stderr io.Reader, wait func() error) {
	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()

	c.stdoutWriter = stdoutWriter
	c.stderrWriter = stderrWriter
	c.rootctx = logging.WithLogger(ctx, logging.ToWriter(stderrWriter))

	c.Attach(kpapp)

	resultErr := make(chan error, 1)

	c.exitWithError = func(ec error) {
		resultErr <- ec
	}

	go func() {
		defer func() {
			close(resultErr)
			stderrWriter.Close() //nolint:errcheck
			stdoutWriter.Close() //nolint:errcheck
		}()

		if _, err := kpapp.Parse(argsAndFlags); err != nil {
			resultErr <- err
		}
	}()

	return stdoutReader, stderrReader, func() error {
		return <-resultErr
	}
}
