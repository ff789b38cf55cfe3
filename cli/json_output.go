package cli

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/fs"
)

// jsonOutput adds --json to commands that can print machine-readable results on stdout.
type jsonOutput struct {
	enabled bool
	indent  bool

	out io.Writer
}

func (c *jsonOutput) setup(svc appServices, cmd *kingpin.CmdClause) {
	cmd.Flag("json", "Print results as JSON").BoolVar(&c.enabled)
	cmd.Flag("json-indent", "Indent JSON results").Hidden().BoolVar(&c.indent)

	c.out = svc.stdout()
}

func (c *jsonOutput) encode(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if c.indent {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "unable to encode JSON")
	}

	return buf.Bytes(), nil
}

// write prints v as a single JSON document.
func (c *jsonOutput) write(v any) error {
	b, err := c.encode(v)
	if err != nil {
		return err
	}

	_, err = c.out.Write(b)

	return errors.Wrap(err, "unable to write JSON output")
}

// writeEntries prints entries as a JSON array with one element per line, so that long
// listings can be processed line by line.
func (c *jsonOutput) writeEntries(entries fs.Entries) error {
	if c.indent || len(entries) == 0 {
		return c.write(append(fs.Entries{}, entries...))
	}

	buf := []byte("[\n")

	for i, e := range entries {
		b, err := c.encode(e)
		if err != nil {
			return err
		}

		if i > 0 {
			buf = append(buf, ",\n"...)
		}

		buf = append(buf, bytes.TrimSuffix(b, []byte("\n"))...)
	}

	buf = append(buf, "\n]\n"...)

	_, err := c.out.Write(buf)

	return errors.Wrap(err, "unable to write JSON output")
}
