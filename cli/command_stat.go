package cli

import (
	"context"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/shellfs"
)

type commandStat struct {
	path        string
	withContext bool

	jo  jsonOutput
	out textOutput
}

func (c *commandStat) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("stat", "Show metadata of a single entry.")
	cmd.Flag("context", "Include numeric owner, group and security context").BoolVar(&c.withContext)
	cmd.Arg("path", "Path").Required().StringVar(&c.path)
	cmd.Action(svc.sessionAction(c.run))

	c.jo.setup(svc, cmd)
	c.out.setup(svc)
}

type statOutput struct {
	Entry   fs.Metadata                `json:"entry"`
	Context *shellfs.OwnerGroupContext `json:"context,omitempty"`
}

func (c *commandStat) run(ctx context.Context, s *shellfs.Session) error {
	m, err := s.Stat(ctx, c.path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	var ogc *shellfs.OwnerGroupContext

	if c.withContext {
		v, err := s.OwnerGroupContext(ctx, m.AbsolutePath())
		if err != nil {
			return err //nolint:wrapcheck
		}

		ogc = &v
	}

	if c.jo.enabled {
		return c.jo.write(statOutput{m, ogc})
	}

	c.out.printStdout("Path:     %v\n", m.AbsolutePath())
	c.out.printStdout("Type:     %v\n", m.Type())
	c.out.printStdout("Mode:     %v (%v)\n", modeString(m), m.Perm().Octal())
	c.out.printStdout("Owner:    %v:%v\n", m.Owner().User, m.Owner().Group)
	c.out.printStdout("Size:     %v\n", sizeString(m, false))
	c.out.printStdout("Modified: %v\n", formatTimestamp(m.ModTime().Local()))

	if target, ok := m.LinkTarget(); ok {
		c.out.printStdout("Target:   %v\n", target)
	}

	if ogc != nil {
		c.out.printStdout("UID/GID:  %v/%v\n", ogc.UID, ogc.GID)
		c.out.printStdout("Context:  %v\n", ogc.Context)
	}

	return nil
}
