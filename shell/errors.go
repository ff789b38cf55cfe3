package shell

import (
	"fmt"
	"strings"

	"github.com/shellfs/shellfs/fs"
)

// noSuchFile is the stderr fragment used to classify not-found failures.
const noSuchFile = "No such file or directory"

// CommandFailedError is returned when a command exits with non-zero status.
type CommandFailedError struct {
	Command string
	Result  *Result
}

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %v", e.Command, e.Result.ExitCode)

	if len(e.Result.Stderr) > 0 {
		msg += ": " + strings.Join(e.Result.Stderr, "; ")
	}

	return msg
}

// Is reports fs.ErrEntryNotFound when the command's stderr says the file does not exist.
func (e *CommandFailedError) Is(target error) bool {
	return target == fs.ErrEntryNotFound && IsNotFound(e.Result) //nolint:errorlint
}

// IsNotFound returns true if the stderr of the result reports a missing file.
func IsNotFound(res *Result) bool {
	for _, l := range res.Stderr {
		if strings.Contains(l, noSuchFile) {
			return true
		}
	}

	return false
}

// UnexpectedResultError is returned when a command succeeded but its output did not have the expected shape.
type UnexpectedResultError struct {
	Command string
	Result  *Result
	Reason  string
}

func (e *UnexpectedResultError) Error() string {
	return fmt.Sprintf("unexpected output of %q: %v", e.Command, e.Reason)
}
