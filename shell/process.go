package shell

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/clock"
	"github.com/shellfs/shellfs/internal/metrics"
	"github.com/shellfs/shellfs/internal/osexec"
	"github.com/shellfs/shellfs/logging"
)

var log = logging.Module("shellfs/shell")

// ProcessRunner runs each command as a local child process.
//
// Without a wrapper the command runs under /bin/sh, elevated through sudo or su as configured.
// With a wrapper (for example an external ssh invocation) the command line, elevated as
// configured, is appended as the last argument of the wrapper.
type ProcessRunner struct {
	elevation Elevation
	wrapper   []string
	metrics   runnerMetrics
}

// NewProcessRunner returns a runner that executes commands locally.
func NewProcessRunner(e Elevation, mr *metrics.Registry) *ProcessRunner {
	return &ProcessRunner{elevation: e, metrics: newRunnerMetrics(mr, TransportLocal)}
}

// NewWrappedRunner returns a runner that passes command lines to the given wrapper command.
func NewWrappedRunner(wrapper []string, e Elevation, mr *metrics.Registry) *ProcessRunner {
	return &ProcessRunner{elevation: e, wrapper: wrapper, metrics: newRunnerMetrics(mr, "external")}
}

func (r *ProcessRunner) argv(priv Privilege, command string) []string {
	if len(r.wrapper) == 0 {
		return r.elevation.Argv(priv, command)
	}

	return append(append([]string(nil), r.wrapper...), r.elevation.CommandLine(priv, command))
}

// Run implements Runner.
func (r *ProcessRunner) Run(ctx context.Context, priv Privilege, command string) (*Result, error) {
	argv := r.argv(priv, command)

	//nolint:gosec
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	osexec.DisableInterruptSignal(c)
	osexec.KillGroupOnCancel(c)

	var stdout, stderr bytes.Buffer

	c.Stdout = &stdout
	c.Stderr = &stderr

	t0 := clock.Now()
	err := c.Run()

	res := &Result{Command: command}

	var ee *exec.ExitError

	switch {
	case err == nil:
	case errors.As(err, &ee) && ctx.Err() == nil:
		res.ExitCode = ee.ExitCode()
	default:
		return nil, errors.Wrapf(err, "error running %v", argv[0])
	}

	res.Stdout = splitLines(stdout.String())
	res.Stderr = splitLines(stderr.String())

	r.metrics.record(res)
	log(ctx).Debugf("%v command %q exited with %v in %v", priv, command, res.ExitCode, clock.Since(t0))

	return res, nil
}

var _ Runner = (*ProcessRunner)(nil)
