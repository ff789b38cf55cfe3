package cli

import (
	"context"

	"github.com/shellfs/shellfs/shellfs"
)

type commandProbe struct {
	jo  jsonOutput
	out textOutput
}

func (c *commandProbe) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("probe", "Show the utility binary used on the target system.")
	cmd.Action(svc.sessionAction(c.run))

	c.jo.setup(svc, cmd)
	c.out.setup(svc)
}

func (c *commandProbe) run(ctx context.Context, s *shellfs.Session) error {
	tb := s.Toolbox()

	if c.jo.enabled {
		return c.jo.write(tb)
	}

	if tb.Bare() {
		warningColor.Fprintln(c.out.stdout(), "No utility binary found, using bare executables.") //nolint:errcheck
		return nil
	}

	c.out.printStdout("Utility: %v\n", tb.Name)
	c.out.printStdout("Path:    %v\n", tb.Path)

	if tb.Version != "" {
		noteColor.Fprintf(c.out.stdout(), "Version: %v\n", tb.Version) //nolint:errcheck
	}

	return nil
}
