// Package shelltest provides scripted fakes of shell.Runner and shell.Opener for tests.
package shelltest

import (
	"context"
	"sync"

	"github.com/shellfs/shellfs/shell"
)

// Call records a single command issued to Runner.
type Call struct {
	Privilege shell.Privilege
	Command   string
}

// Runner is a shell.Runner that answers commands from a script of exact command lines.
// Unknown commands exit with status 127.
type Runner struct {
	mu      sync.Mutex
	results map[string]shell.Result
	errors  map[string]error
	calls   []Call
}

// NewRunner returns an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{
		results: map[string]shell.Result{},
		errors:  map[string]error{},
	}
}

// On scripts the result of a command.
func (r *Runner) On(command string, res shell.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[command] = res

	return r
}

// OnStdout scripts a successful command printing the given lines.
func (r *Runner) OnStdout(command string, lines ...string) *Runner {
	return r.On(command, shell.Result{Stdout: lines})
}

// OnFailure scripts a command exiting with the given status and stderr.
func (r *Runner) OnFailure(command string, exitCode int, stderr ...string) *Runner {
	return r.On(command, shell.Result{ExitCode: exitCode, Stderr: stderr})
}

// OnError scripts a transport failure.
func (r *Runner) OnError(command string, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors[command] = err

	return r
}

// Calls returns all commands issued so far.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Call(nil), r.calls...)
}

// Commands returns the command lines issued so far.
func (r *Runner) Commands() []string {
	var res []string

	for _, c := range r.Calls() {
		res = append(res, c.Command)
	}

	return res
}

// Run implements shell.Runner.
func (r *Runner) Run(ctx context.Context, priv shell.Privilege, command string) (*shell.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{priv, command})

	if err := r.errors[command]; err != nil {
		return nil, err
	}

	res, ok := r.results[command]
	if !ok {
		res = shell.Result{ExitCode: 127, Stderr: []string{"sh: " + command + ": not found"}} //nolint:mnd
	}

	res.Command = command

	return &res, nil
}

var _ shell.Runner = (*Runner)(nil)
