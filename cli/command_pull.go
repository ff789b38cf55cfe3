package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	natomic "github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/clock"
	"github.com/shellfs/shellfs/internal/units"
	"github.com/shellfs/shellfs/shellfs"
)

const (
	pullDirMode  = 0o700
	pullLockFile = ".shellfs.lock"
)

type commandPull struct {
	source       string
	dest         string
	parallel     int
	preservePerm bool
	preserveTime bool

	out textOutput
}

func (c *commandPull) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("pull", "Copy a file or directory tree from the target system.")
	cmd.Flag("parallel", "Number of files copied in parallel").Default("4").IntVar(&c.parallel)
	cmd.Flag("preserve-permissions", "Apply permission bits of the source").Default("true").BoolVar(&c.preservePerm)
	cmd.Flag("preserve-times", "Apply modification times of the source").Default("true").BoolVar(&c.preserveTime)
	cmd.Arg("source", "Path on the target system").Required().StringVar(&c.source)
	cmd.Arg("destination", "Local directory").Required().StringVar(&c.dest)
	cmd.Action(svc.sessionAction(c.run))

	c.out.setup(svc)
}

type pullStats struct {
	files atomic.Int64
	bytes atomic.Int64
}

func (c *commandPull) run(ctx context.Context, s *shellfs.Session) error {
	entries, err := c.sourceEntries(ctx, s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dest, pullDirMode); err != nil {
		return errors.Wrap(err, "unable to create destination")
	}

	lock := flock.New(filepath.Join(c.dest, pullLockFile))

	locked, err := lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "unable to lock destination")
	}

	if !locked {
		return errors.Errorf("destination %v is in use by another process", c.dest)
	}

	defer func() {
		lock.Unlock()          //nolint:errcheck
		os.Remove(lock.Path()) //nolint:errcheck
	}()

	t0 := clock.Now()

	stats, err := c.pullEntries(ctx, s, entries)
	if err != nil {
		return err
	}

	dt := clock.Since(t0)

	c.out.printStderr("Pulled %v files (%v) in %v (%v)\n",
		stats.files.Load(),
		units.BytesString(stats.bytes.Load()),
		dt.Truncate(time.Millisecond),
		units.BytesPerSecondsString(float64(stats.bytes.Load())/dt.Seconds()))

	return nil
}

// sourceEntries returns the source itself followed by its subtree when it is a directory.
func (c *commandPull) sourceEntries(ctx context.Context, s *shellfs.Session) (fs.Entries, error) {
	root, err := s.Stat(ctx, c.source)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	entries := fs.Entries{root}

	if root.IsDir() {
		children, err := s.List(ctx, root.AbsolutePath(), true, root.RelativePath())
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		entries = append(entries, children...)
	}

	return entries, nil
}

func (c *commandPull) pullEntries(ctx context.Context, s *shellfs.Session, entries fs.Entries) (*pullStats, error) {
	stats := &pullStats{}

	for _, e := range entries {
		switch e.Type() {
		case fs.Directory:
			if err := os.MkdirAll(c.localPath(e), pullDirMode); err != nil {
				return nil, errors.Wrap(err, "unable to create directory")
			}

		case fs.Symlink:
			if err := c.pullSymlink(e); err != nil {
				return nil, err
			}

		case fs.RegularFile:

		default:
			log(ctx).Infof("skipping %v %v", e.Type(), e.AbsolutePath())
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(c.parallel, 1))

	for _, e := range entries {
		if e.Type() != fs.RegularFile {
			continue
		}

		eg.Go(func() error {
			n, err := c.pullFile(ctx, s, e)
			if err != nil {
				return errors.Wrapf(err, "error pulling %v", e.AbsolutePath())
			}

			stats.files.Add(1)
			stats.bytes.Add(n)

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	// directories last, deepest first, since creating their contents updates modification times
	dirs := entries.Directories()
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := c.applyAttributes(dirs[i]); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (c *commandPull) localPath(e fs.Metadata) string {
	return filepath.Join(c.dest, filepath.FromSlash(e.RelativePath()))
}

func (c *commandPull) pullSymlink(e fs.Metadata) error {
	target, _ := e.LinkTarget()
	p := c.localPath(e)

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to replace symlink")
	}

	return errors.Wrap(os.Symlink(target, p), "unable to create symlink")
}

func (c *commandPull) pullFile(ctx context.Context, s *shellfs.Session, e fs.Metadata) (int64, error) {
	p := c.localPath(e)
	staging := filepath.Join(filepath.Dir(p), ".shellfs-"+uuid.NewString()+".tmp")

	f, err := os.OpenFile(staging, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:mnd
	if err != nil {
		return 0, errors.Wrap(err, "unable to create staging file")
	}

	defer os.Remove(staging) //nolint:errcheck

	n, err := s.CopyFile(ctx, e, f)
	if err != nil {
		f.Close()     //nolint:errcheck
		return n, err //nolint:wrapcheck
	}

	if err := f.Close(); err != nil {
		return n, errors.Wrap(err, "unable to close staging file")
	}

	if err := natomic.ReplaceFile(staging, p); err != nil {
		return n, errors.Wrap(err, "unable to replace file")
	}

	return n, c.applyAttributes(e)
}

func (c *commandPull) applyAttributes(e fs.Metadata) error {
	p := c.localPath(e)

	if c.preservePerm {
		if err := os.Chmod(p, e.Perm().FileMode()); err != nil {
			return errors.Wrap(err, "unable to apply permissions")
		}
	}

	if c.preserveTime {
		if err := os.Chtimes(p, e.ModTime(), e.ModTime()); err != nil {
			return errors.Wrap(err, "unable to apply modification time")
		}
	}

	return nil
}
