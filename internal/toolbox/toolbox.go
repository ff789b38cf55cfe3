// Package toolbox locates a portable utility binary (toybox, busybox) on the target system.
//
// The resolved Toolbox is an immutable value produced once per session and passed to every
// component that builds command lines.
package toolbox

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/shellquote"
	"github.com/shellfs/shellfs/logging"
	"github.com/shellfs/shellfs/shell"
)

var log = logging.Module("shellfs/toolbox")

// DefaultCandidates lists utility binaries in order of preference.
//
//nolint:gochecknoglobals
var DefaultCandidates = []string{
	"toybox",
	"busybox",
	"/system/bin/toybox",
	"/system/xbin/busybox",
}

// bareProbe is probed when no candidate resolves to decide whether bare executables are usable.
const bareProbe = "ls"

// Options configures resolution.
type Options struct {
	Candidates []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

func (o Options) candidates() []string {
	if len(o.Candidates) == 0 {
		return DefaultCandidates
	}

	return o.Candidates
}

// Toolbox is the resolved utility binary.
type Toolbox struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Quoted  string `json:"-"`
	Version string `json:"version,omitempty"`
}

// Bare returns true when no utility binary was found and commands run without prefix.
func (t *Toolbox) Bare() bool {
	return t.Path == ""
}

// Command builds a command line running the given utility command (e.g. "ls") with pre-quoted arguments.
func (t *Toolbox) Command(command string, quotedArgs ...string) string {
	parts := make([]string, 0, len(quotedArgs)+2) //nolint:mnd

	if t.Quoted != "" {
		parts = append(parts, t.Quoted)
	}

	parts = append(parts, command)
	parts = append(parts, quotedArgs...)

	return strings.Join(parts, " ")
}

// UnavailableError is returned when none of the candidate binaries could be found.
type UnavailableError struct {
	Tried []string
}

func (e *UnavailableError) Error() string {
	return "no utility binary available, tried: " + strings.Join(e.Tried, ", ")
}

// Probe is the outcome of looking up a single binary.
type Probe struct {
	Name  string
	Path  string
	Found bool
}

// Which looks up name on the target system. A probe that prints nothing is reported as not found,
// regardless of its exit status.
func Which(ctx context.Context, r shell.Runner, name string) (Probe, error) {
	res, err := r.Run(ctx, shell.Elevated, "which "+shellquote.Quote(name))
	if err != nil {
		return Probe{}, errors.Wrapf(err, "unable to probe for %v", name)
	}

	for _, l := range res.Stdout {
		if p := strings.TrimSpace(l); p != "" {
			return Probe{Name: name, Path: p, Found: true}, nil
		}
	}

	return Probe{Name: name}, nil
}

// Resolve tries each candidate in order and returns the first one that is found.
func Resolve(ctx context.Context, r shell.Runner, opts Options) (*Toolbox, error) {
	candidates := opts.candidates()

	for _, name := range candidates {
		p, err := Which(ctx, r, name)
		if err != nil {
			return nil, err
		}

		if !p.Found {
			log(ctx).Debugf("utility binary %v not found", name)
			continue
		}

		tb := &Toolbox{
			Name:    name,
			Path:    p.Path,
			Quoted:  shellquote.Quote(p.Path),
			Version: version(ctx, r, p.Path),
		}

		log(ctx).Debugf("using utility binary %v (%v)", tb.Path, tb.Version)

		return tb, nil
	}

	p, err := Which(ctx, r, bareProbe)
	if err != nil {
		return nil, err
	}

	if !p.Found {
		return nil, &UnavailableError{Tried: append([]string(nil), candidates...)}
	}

	log(ctx).Warnf("none of %v found, using bare executables", strings.Join(candidates, ", "))

	return &Toolbox{}, nil
}

func version(ctx context.Context, r shell.Runner, path string) string {
	res, err := r.Run(ctx, shell.Elevated, shellquote.Quote(path)+" --version")
	if err != nil || !res.Success() || len(res.Stdout) == 0 {
		log(ctx).Debugf("unable to determine version of %v: %v", path, err)
		return ""
	}

	return strings.TrimSpace(res.Stdout[0])
}
