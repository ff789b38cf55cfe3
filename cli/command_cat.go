package cli

import (
	"context"
	"io"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/shellfs"
)

type commandCat struct {
	path   string
	output string

	out textOutput
}

func (c *commandCat) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("cat", "Print the contents of a file on the target system.")
	cmd.Flag("output", "Write contents to a local file instead of stdout").Short('o').StringVar(&c.output)
	cmd.Arg("path", "Path").Required().StringVar(&c.path)
	cmd.Action(svc.sessionAction(c.run))

	c.out.setup(svc)
}

func (c *commandCat) run(ctx context.Context, s *shellfs.Session) error {
	m, err := s.Stat(ctx, c.path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if m.Type() != fs.RegularFile {
		return errors.Errorf("%v is a %v, not a regular file", c.path, m.Type())
	}

	if c.output == "" {
		_, err := s.CopyFile(ctx, m, c.out.stdout())

		return err //nolint:wrapcheck
	}

	return writeFileAtomically(ctx, s, m, c.output)
}

// writeFileAtomically copies the remote file into a local file which is replaced only when the copy succeeds.
func writeFileAtomically(ctx context.Context, s *shellfs.Session, m fs.Metadata, localPath string) error {
	pr, pw := io.Pipe()

	go func() {
		_, err := s.CopyFile(ctx, m, pw)
		pw.CloseWithError(err) //nolint:errcheck
	}()

	if err := atomic.WriteFile(localPath, pr); err != nil {
		pr.CloseWithError(err) //nolint:errcheck

		return errors.Wrapf(err, "unable to write %v", localPath)
	}

	return nil
}
