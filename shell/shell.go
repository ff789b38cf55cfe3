// Package shell runs command lines under normal or elevated privileges and opens files
// through a privileged random-access primitive.
package shell

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/metrics"
)

// Privilege selects the privileges a command runs with.
type Privilege int

// Supported privileges.
const (
	Normal Privilege = iota
	Elevated
)

func (p Privilege) String() string {
	if p == Elevated {
		return "elevated"
	}

	return "normal"
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	Command  string   `json:"command"`
	ExitCode int      `json:"exitCode"`
	Stdout   []string `json:"stdout"`
	Stderr   []string `json:"stderr"`
}

// Success returns true when the command exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes command lines.
//
// The returned error is reserved for failures to run the command at all (transport errors,
// canceled context). A command that ran and exited with non-zero status is reported through
// Result.ExitCode; use Check to convert it into an error.
type Runner interface {
	Run(ctx context.Context, priv Privilege, command string) (*Result, error)
}

// File is a handle returned by Opener.
type File interface {
	io.ReadSeekCloser
}

// Opener opens files for random-access reading with elevated privileges.
type Opener interface {
	Open(ctx context.Context, path string) (File, error)
}

// RunChecked runs the command and returns *CommandFailedError when it exits with non-zero status.
func RunChecked(ctx context.Context, r Runner, priv Privilege, command string) (*Result, error) {
	res, err := r.Run(ctx, priv, command)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to run %q", command)
	}

	return res, Check(res)
}

// Check returns *CommandFailedError if the result has non-zero exit status.
func Check(res *Result) error {
	if res.Success() {
		return nil
	}

	return &CommandFailedError{Command: res.Command, Result: res}
}

// splitLines splits captured output into lines, dropping the trailing newline.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	return lines
}

// runnerMetrics counts commands executed through a Runner.
type runnerMetrics struct {
	executed *metrics.Counter
	failed   *metrics.Counter
}

func newRunnerMetrics(mr *metrics.Registry, transport string) runnerMetrics {
	labels := map[string]string{"transport": transport}

	return runnerMetrics{
		executed: mr.CounterInt64("commands_executed", "Number of shell commands executed", labels),
		failed:   mr.CounterInt64("commands_failed", "Number of shell commands that exited with non-zero status", labels),
	}
}

func (m runnerMetrics) record(res *Result) {
	m.executed.Add(1)

	if res != nil && !res.Success() {
		m.failed.Add(1)
	}
}
