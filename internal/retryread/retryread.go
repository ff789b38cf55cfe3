// Package retryread copies files of known size through handles that may report end-of-stream early.
package retryread

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/iocopy"
	"github.com/shellfs/shellfs/internal/metrics"
	"github.com/shellfs/shellfs/logging"
	"github.com/shellfs/shellfs/shell"
)

var log = logging.Module("shellfs/retryread")

// Defaults.
const (
	DefaultChunkSize  = iocopy.BufSize
	DefaultMaxRetries = 10
)

// Options configures the reader.
type Options struct {
	ChunkSize  int `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty"`
	MaxRetries int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}

	return o.ChunkSize
}

func (o Options) maxRetries() int {
	if o.MaxRetries <= 0 {
		return DefaultMaxRetries
	}

	return o.MaxRetries
}

// ReadFailedError is returned when the source kept ending prematurely until the retry budget ran out.
type ReadFailedError struct {
	Path     string
	Expected int64
	Retries  int
	Reached  int64
}

func (e *ReadFailedError) Error() string {
	return fmt.Sprintf("unable to read %v: got %v of %v bytes, giving up after %v retries", e.Path, e.Reached, e.Expected, e.Retries)
}

// Reader copies files opened through a shell.Opener.
type Reader struct {
	opener shell.Opener
	opts   Options

	reopens *metrics.Counter
	bytes   *metrics.Counter
}

// New returns a Reader. The metrics registry may be nil.
func New(opener shell.Opener, opts Options, mr *metrics.Registry) *Reader {
	return &Reader{
		opener:  opener,
		opts:    opts,
		reopens: mr.CounterInt64("reader_reopens", "Number of times a file was reopened after ending prematurely", nil),
		bytes:   mr.CounterInt64("bytes_copied", "Number of file bytes copied", nil),
	}
}

// Copy copies the contents of the file at path to w.
func Copy(ctx context.Context, opener shell.Opener, path string, expectedSize int64, w io.Writer, opts Options) (int64, error) {
	return New(opener, opts, nil).Copy(ctx, path, expectedSize, w)
}

// Copy copies the contents of the file at path to w, reading until end-of-stream.
//
// End-of-stream before expectedSize bytes were delivered closes the handle, reopens the file and
// continues from the delivered offset. Once expectedSize bytes were delivered, end-of-stream ends the
// copy, so a file that grew since it was listed is copied in full. Every read that returns data
// restores the full retry budget.
func (r *Reader) Copy(ctx context.Context, path string, expectedSize int64, w io.Writer) (int64, error) {
	budget := r.opts.maxRetries()

	f, err := r.opener.Open(ctx, path)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to open %v", path)
	}

	defer func() {
		if f != nil {
			closeFile(ctx, f, path)
		}
	}()

	buf, release := r.buffer()
	defer release()

	var (
		delivered int64
		retries   = budget
	)

	for {
		if err := ctx.Err(); err != nil {
			return delivered, errors.Wrap(err, "copy interrupted")
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return delivered, errors.Wrapf(err, "unable to write contents of %v", path)
			}

			delivered += int64(n)
			retries = budget

			r.bytes.Add(int64(n))
		}

		if readErr == nil {
			continue
		}

		if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return delivered, errors.Wrapf(readErr, "error reading %v", path)
		}

		if delivered >= expectedSize {
			if delivered != expectedSize {
				log(ctx).Debugf("%v ended at %v bytes, listed as %v", path, delivered, expectedSize)
			}

			return delivered, nil
		}

		if retries == 0 {
			return delivered, &ReadFailedError{
				Path:     path,
				Expected: expectedSize,
				Retries:  budget,
				Reached:  delivered,
			}
		}

		retries--

		log(ctx).Debugf("premature end of %v at %v of %v bytes, reopening (%v retries left)", path, delivered, expectedSize, retries)

		r.reopens.Add(1)

		closeFile(ctx, f, path)
		f = nil

		if f, err = r.reopen(ctx, path, delivered); err != nil {
			return delivered, err
		}
	}
}

func (r *Reader) reopen(ctx context.Context, path string, offset int64) (shell.File, error) {
	f, err := r.opener.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to reopen %v", path)
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		closeFile(ctx, f, path)

		return nil, errors.Wrapf(err, "unable to seek %v to %v", path, offset)
	}

	return f, nil
}

func (r *Reader) buffer() (buf []byte, release func()) {
	size := r.opts.chunkSize()

	if size == iocopy.BufSize {
		b := iocopy.GetBuffer()
		return b, func() { iocopy.ReleaseBuffer(b) }
	}

	return make([]byte, size), func() {}
}

func closeFile(ctx context.Context, f shell.File, path string) {
	if err := f.Close(); err != nil {
		log(ctx).Debugf("error closing %v: %v", path, err)
	}
}
