package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/units"
	"github.com/shellfs/shellfs/shellfs"
)

type commandList struct {
	long      bool
	recursive bool
	human     bool
	path      string

	jo  jsonOutput
	out textOutput
}

func (c *commandList) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("ls", "List a directory on the target system.").Alias("list")

	cmd.Flag("long", "Long output").Short('l').BoolVar(&c.long)
	cmd.Flag("recursive", "Recursive output").Short('r').BoolVar(&c.recursive)
	cmd.Flag("human", "Print sizes in human-readable units").Short('h').BoolVar(&c.human)
	cmd.Arg("path", "Path").Required().StringVar(&c.path)
	cmd.Action(svc.sessionAction(c.run))

	c.jo.setup(svc, cmd)
	c.out.setup(svc)
}

func (c *commandList) run(ctx context.Context, s *shellfs.Session) error {
	entries, err := s.List(ctx, c.path, c.recursive, "")
	if err != nil {
		return err //nolint:wrapcheck
	}

	if c.jo.enabled {
		return c.jo.writeEntries(entries)
	}

	for _, e := range entries {
		entryColor(e).Fprintln(c.out.stdout(), c.formatEntry(e)) //nolint:errcheck
	}

	return nil
}

func (c *commandList) formatEntry(e fs.Metadata) string {
	name := displayName(e)

	if !c.long {
		return name
	}

	return fmt.Sprintf("%v %-10v %-10v %12v %v %v",
		modeString(e),
		e.Owner().User,
		e.Owner().Group,
		sizeString(e, c.human),
		formatTimestamp(e.ModTime().Local()),
		name,
	)
}

func displayName(e fs.Metadata) string {
	name := e.RelativePath()

	if e.IsDir() {
		name += "/"
	}

	if target, ok := e.LinkTarget(); ok {
		name += " -> " + target
	}

	return name
}

func modeString(e fs.Metadata) string {
	return string(e.Type().Indicator()) + e.Perm().String()
}

func sizeString(e fs.Metadata, human bool) string {
	if e.Type() != fs.RegularFile {
		return "-"
	}

	if human {
		return units.BytesString(e.Size())
	}

	return strconv.FormatInt(e.Size(), 10)
}

func formatTimestamp(ts time.Time) string {
	return ts.Format("2006-01-02 15:04:05 MST")
}

func entryColor(e fs.Metadata) *color.Color {
	switch e.Type() {
	case fs.Directory:
		return dirColor
	case fs.Symlink:
		return linkColor
	case fs.RegularFile:
		return defaultColor
	default:
		return specialColor
	}
}
