package shellfs

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/shellquote"
)

// pendingDir is a directory waiting to be listed.
type pendingDir struct {
	absolutePath   string
	relativeParent string
}

// List returns metadata of all entries at p.
//
// When recursive is true, every directory found is listed in turn, yielding entries in depth-first
// pre-order: all entries of a directory, then the subtree of each subdirectory in listing order.
// Symbolic links are never followed. parent is prepended to relative paths of the results.
func (s *Session) List(ctx context.Context, p string, recursive bool, parent string) (fs.Entries, error) {
	stack := []pendingDir{{cleanPath(p), parent}}

	var result fs.Entries

	defer s.pendingDirs.Set(0)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "listing interrupted")
		}

		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.pendingDirs.Set(int64(len(stack)))

		entries, err := s.listDir(ctx, d)
		if err != nil {
			return nil, err
		}

		result = append(result, entries...)

		if !recursive {
			break
		}

		dirs := entries.Directories()
		for i := len(dirs) - 1; i >= 0; i-- {
			stack = append(stack, pendingDir{
				absolutePath:   dirs[i].AbsolutePath(),
				relativeParent: dirs[i].RelativePath(),
			})
		}

		s.pendingDirs.Set(int64(len(stack)))
	}

	return result, nil
}

func (s *Session) listDir(ctx context.Context, d pendingDir) (fs.Entries, error) {
	ctx, span := tracer.Start(ctx, "ListDirectory", trace.WithAttributes(attribute.String("dir", d.absolutePath)))
	defer span.End()

	log(ctx).Debugf("listing %v", d.absolutePath)

	entries, _, err := s.runListing(ctx, s.toolbox.Command("ls -bAll", shellquote.Quote(d.absolutePath)), d.relativeParent, d.absolutePath)

	return entries, err
}
