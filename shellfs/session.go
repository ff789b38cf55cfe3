// Package shellfs lists and reads files on a target system through a privileged shell.
package shellfs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/listing"
	"github.com/shellfs/shellfs/internal/metrics"
	"github.com/shellfs/shellfs/internal/retryread"
	"github.com/shellfs/shellfs/internal/shellquote"
	"github.com/shellfs/shellfs/internal/toolbox"
	"github.com/shellfs/shellfs/logging"
	"github.com/shellfs/shellfs/shell"
)

var (
	log    = logging.Module("shellfs/session")
	tracer = otel.Tracer("shellfs/session")
)

// Options configures a Session.
type Options struct {
	Toolbox toolbox.Options   `json:"toolbox" yaml:"toolbox"`
	Reader  retryread.Options `json:"reader" yaml:"reader"`
}

// Session issues listing and read operations against one target system.
// It resolves the utility binary once and uses it for every command.
type Session struct {
	runner  shell.Runner
	toolbox *toolbox.Toolbox
	reader  *retryread.Reader

	linesParsed  *metrics.Counter
	linesDropped *metrics.Counter
	fallbacks    map[listing.ModeOutcome]*metrics.Counter
	pendingDirs  *metrics.Gauge
}

// NewSession resolves the utility binary and returns a Session. The metrics registry may be nil.
func NewSession(ctx context.Context, runner shell.Runner, opener shell.Opener, opts Options, mr *metrics.Registry) (*Session, error) {
	tb, err := toolbox.Resolve(ctx, runner, opts.Toolbox)
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve utility binary")
	}

	return &Session{
		runner:       runner,
		toolbox:      tb,
		reader:       retryread.New(opener, opts.Reader, mr),
		linesParsed:  mr.CounterInt64("listing_lines_parsed", "Number of listing lines parsed", nil),
		linesDropped: mr.CounterInt64("listing_lines_dropped", "Number of listing lines dropped before parsing", nil),
		fallbacks: map[listing.ModeOutcome]*metrics.Counter{
			listing.ModeCacheFallback: fallbackCounter(mr, listing.ModeCacheFallback),
			listing.ModeTypeFallback:  fallbackCounter(mr, listing.ModeTypeFallback),
		},
		pendingDirs: mr.GaugeInt64("walk_pending_directories", "Number of directories waiting to be listed", nil),
	}, nil
}

func fallbackCounter(mr *metrics.Registry, o listing.ModeOutcome) *metrics.Counter {
	return mr.CounterInt64("permission_fallbacks", "Number of entries whose permissions could not be parsed",
		map[string]string{"outcome": o.String()})
}

// Toolbox returns the utility binary resolved for the session.
func (s *Session) Toolbox() *toolbox.Toolbox {
	return s.toolbox
}

// Stat returns metadata of a single entry without listing directory contents.
// The root directory has no name and cannot be stat'ed.
func (s *Session) Stat(ctx context.Context, p string) (fs.Metadata, error) {
	p = cleanPath(p)
	if p == "/" {
		return fs.Metadata{}, errors.New("unable to stat the root directory")
	}

	cmd := s.toolbox.Command("ls -bdAll", shellquote.Quote(p))

	entries, res, err := s.runListing(ctx, cmd, "", path.Dir(p))
	if err != nil {
		return fs.Metadata{}, err
	}

	if len(entries) != 1 {
		return fs.Metadata{}, &shell.UnexpectedResultError{
			Command: cmd,
			Result:  res,
			Reason:  fmt.Sprintf("expected exactly one entry, got %v", len(entries)),
		}
	}

	return entries[0], nil
}

// Exists returns true if the entry exists. Only a "No such file or directory" failure counts as absent.
func (s *Session) Exists(ctx context.Context, p string) (bool, error) {
	_, err := shell.RunChecked(ctx, s.runner, shell.Elevated, s.toolbox.Command("ls -bd", shellquote.Quote(cleanPath(p))))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrEntryNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Names returns the decoded names of entries in a directory.
func (s *Session) Names(ctx context.Context, p string) ([]string, error) {
	res, err := shell.RunChecked(ctx, s.runner, shell.Elevated, s.toolbox.Command("ls -bA1", shellquote.Quote(cleanPath(p))))
	if err != nil {
		return nil, err
	}

	var names []string

	for _, l := range res.Stdout {
		if l == "" {
			continue
		}

		names = append(names, listing.DecodeEscapes(l))
	}

	return names, nil
}

// OwnerGroupContext holds numeric ownership and the security context of an entry.
type OwnerGroupContext struct {
	UID     string `json:"uid"`
	GID     string `json:"gid"`
	Context string `json:"context"`
}

// OwnerGroupContext returns numeric owner, group and security context of an entry.
func (s *Session) OwnerGroupContext(ctx context.Context, p string) (OwnerGroupContext, error) {
	cmd := s.toolbox.Command("stat -c", shellquote.QuoteAll("%u %g %C", cleanPath(p)))

	res, err := shell.RunChecked(ctx, s.runner, shell.Elevated, cmd)
	if err != nil {
		return OwnerGroupContext{}, err
	}

	var fields []string
	if len(res.Stdout) > 0 {
		fields = strings.Fields(res.Stdout[0])
	}

	const expectedFields = 3

	if len(fields) < expectedFields {
		return OwnerGroupContext{}, &shell.UnexpectedResultError{
			Command: cmd,
			Result:  res,
			Reason:  "expected uid, gid and context",
		}
	}

	return OwnerGroupContext{UID: fields[0], GID: fields[1], Context: fields[2]}, nil
}

// CopyFile writes the full contents of a regular file to w, returning the number of bytes copied.
func (s *Session) CopyFile(ctx context.Context, m fs.Metadata, w io.Writer) (int64, error) {
	if m.Type() != fs.RegularFile {
		return 0, errors.Errorf("%v is not a regular file", m.AbsolutePath())
	}

	ctx, span := tracer.Start(ctx, "CopyFile", trace.WithAttributes(
		attribute.String("path", m.AbsolutePath()),
		attribute.Int64("size", m.Size()),
	))
	defer span.End()

	return s.reader.Copy(ctx, m.AbsolutePath(), m.Size(), w)
}

// runListing runs a listing command and parses every qualifying line.
func (s *Session) runListing(ctx context.Context, cmd, relativeParent, absoluteParent string) (fs.Entries, *shell.Result, error) {
	res, err := shell.RunChecked(ctx, s.runner, shell.Elevated, cmd)
	if err != nil {
		return nil, res, err
	}

	var entries fs.Entries

	for _, line := range res.Stdout {
		if !listing.Qualifies(line) {
			s.linesDropped.Add(1)
			continue
		}

		r, err := listing.ParseLine(ctx, line, relativeParent, absoluteParent)
		if err != nil {
			return nil, res, &shell.UnexpectedResultError{
				Command: cmd,
				Result:  res,
				Reason:  err.Error(),
			}
		}

		s.linesParsed.Add(1)

		if r.Mode != listing.ModeParsed {
			s.fallbacks[r.Mode].Add(1)
		}

		entries = append(entries, r.Metadata)
	}

	return entries, res, nil
}

func cleanPath(p string) string {
	if p == "" {
		return "."
	}

	return path.Clean(p)
}
