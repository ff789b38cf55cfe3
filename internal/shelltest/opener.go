package shelltest

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/shell"
)

// Unlimited is returned by LimitFunc for handles that never end prematurely.
const Unlimited = -1

// LimitFunc returns how many bytes the n-th opened handle (starting at 1) delivers before reporting io.EOF.
type LimitFunc func(n int) int64

// FlakyOpener serves in-memory files through handles that may report end-of-stream early.
type FlakyOpener struct {
	Files map[string][]byte
	Limit LimitFunc

	// ReadSize caps the number of bytes returned by a single Read, 0 means no cap.
	ReadSize int

	mu     sync.Mutex
	opens  int
	closes int
	seeks  []int64
}

// Opens returns the number of handles opened.
func (o *FlakyOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.opens
}

// Closes returns the number of handles closed.
func (o *FlakyOpener) Closes() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.closes
}

// Seeks returns absolute offsets of all seeks.
func (o *FlakyOpener) Seeks() []int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]int64(nil), o.seeks...)
}

// Open implements shell.Opener.
func (o *FlakyOpener) Open(ctx context.Context, path string) (shell.File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok := o.Files[path]
	if !ok {
		return nil, errors.Wrapf(fs.ErrEntryNotFound, "unable to open %v", path)
	}

	o.opens++

	limit := int64(Unlimited)
	if o.Limit != nil {
		limit = o.Limit(o.opens)
	}

	return &flakyFile{owner: o, data: data, limit: limit}, nil
}

type flakyFile struct {
	owner     *FlakyOpener
	data      []byte
	pos       int64
	delivered int64
	limit     int64
	closed    bool
}

func (f *flakyFile) Read(b []byte) (int, error) {
	if f.closed {
		return 0, errors.New("read on closed file")
	}

	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}

	n := int64(len(b))

	if rs := int64(f.owner.ReadSize); rs > 0 && n > rs {
		n = rs
	}

	if f.limit != Unlimited {
		if remaining := f.limit - f.delivered; remaining <= 0 {
			return 0, io.EOF
		} else if n > remaining {
			n = remaining
		}
	}

	n = int64(copy(b[:n], f.data[f.pos:]))
	f.pos += n
	f.delivered += n

	return int(n), nil
}

func (f *flakyFile) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, errors.New("only SeekStart is supported")
	}

	f.owner.mu.Lock()
	f.owner.seeks = append(f.owner.seeks, offset)
	f.owner.mu.Unlock()

	f.pos = offset

	return offset, nil
}

func (f *flakyFile) Close() error {
	if f.closed {
		return errors.New("already closed")
	}

	f.closed = true

	f.owner.mu.Lock()
	f.owner.closes++
	f.owner.mu.Unlock()

	return nil
}

var _ shell.Opener = (*FlakyOpener)(nil)
