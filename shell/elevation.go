package shell

import (
	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/shellquote"
)

// Elevation names the mechanism used to run elevated commands.
type Elevation string

// Supported elevation mechanisms.
const (
	ElevationNone Elevation = "none" // the process (or remote user) is already privileged
	ElevationSudo Elevation = "sudo"
	ElevationSu   Elevation = "su"
)

// Validate returns an error for unknown elevation mechanisms.
func (e Elevation) Validate() error {
	switch e {
	case ElevationNone, ElevationSudo, ElevationSu:
		return nil
	default:
		return errors.Errorf("unsupported elevation %q", string(e))
	}
}

// Argv returns the argument vector that runs command through sh with the given privileges.
func (e Elevation) Argv(priv Privilege, command string) []string {
	if priv != Elevated {
		return []string{"/bin/sh", "-c", command}
	}

	switch e {
	case ElevationSudo:
		return []string{"sudo", "-n", "/bin/sh", "-c", command}
	case ElevationSu:
		return []string{"su", "-c", command}
	default:
		return []string{"/bin/sh", "-c", command}
	}
}

// CommandLine returns a single command line, suitable for a remote shell, that runs command with
// the given privileges.
func (e Elevation) CommandLine(priv Privilege, command string) string {
	if priv != Elevated {
		return command
	}

	switch e {
	case ElevationSudo:
		return "sudo -n /bin/sh -c " + shellquote.Quote(command)
	case ElevationSu:
		return "su -c " + shellquote.Quote(command)
	default:
		return command
	}
}

// ElevatedArgv returns the argument vector that runs an executable directly with elevated privileges.
func (e Elevation) ElevatedArgv(executable string) []string {
	switch e {
	case ElevationSudo:
		return []string{"sudo", "-n", executable}
	case ElevationSu:
		return []string{"su", "-c", shellquote.Quote(executable)}
	default:
		return []string{executable}
	}
}
