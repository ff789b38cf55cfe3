package cli

import (
	"context"

	"github.com/shellfs/shellfs/internal/shellquote"
)

type commandQuote struct {
	values []string

	out textOutput
}

func (c *commandQuote) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("quote", "Print arguments quoted for the target shell.").Hidden()
	cmd.Arg("value", "Values to quote").Required().StringsVar(&c.values)
	cmd.Action(svc.noSessionAction(c.run))

	c.out.setup(svc)
}

func (c *commandQuote) run(ctx context.Context) error {
	c.out.printStdout("%v\n", shellquote.QuoteAll(c.values...))

	return nil
}
