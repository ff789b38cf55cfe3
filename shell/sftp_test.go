package shell

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/testlogging"
)

// newInProcessSFTPOpener connects an SFTPOpener to an in-process sftp server over pipes.
func newInProcessSFTPOpener(t *testing.T) *SFTPOpener {
	t.Helper()

	clientReads, serverWrites := io.Pipe()
	serverReads, clientWrites := io.Pipe()

	srv, err := sftp.NewServer(struct {
		io.Reader
		io.WriteCloser
	}{serverReads, serverWrites})
	require.NoError(t, err)

	go func() {
		srv.Serve()          //nolint:errcheck
		serverWrites.Close() //nolint:errcheck
	}()

	cli, err := sftp.NewClientPipe(clientReads, clientWrites)
	require.NoError(t, err)

	o := &SFTPOpener{cli: cli, closeFunc: srv.Close}
	t.Cleanup(func() { o.Close() }) //nolint:errcheck

	return o
}

func TestSFTPOpener(t *testing.T) {
	ctx := testlogging.Context(t)
	o := newInProcessSFTPOpener(t)

	fname := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(fname, []byte("0123456789"), 0o600))

	f, err := o.Open(ctx, fname)
	require.NoError(t, err)

	defer f.Close() //nolint:errcheck

	_, err = f.Seek(4, io.SeekStart)
	require.NoError(t, err)

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "456789", string(b))

	_, err = o.Open(ctx, filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, fs.ErrEntryNotFound)
}

func TestLocalOpener(t *testing.T) {
	ctx := testlogging.Context(t)

	fname := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(fname, []byte("abc"), 0o600))

	f, err := LocalOpener{}.Open(ctx, fname)
	require.NoError(t, err)

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "abc", string(b))
	require.NoError(t, f.Close())

	_, err = LocalOpener{}.Open(ctx, fname+".missing")
	require.ErrorIs(t, err, fs.ErrEntryNotFound)
}

func TestSplitLines(t *testing.T) {
	require.Nil(t, splitLines(""))
	require.Equal(t, []string{"a"}, splitLines("a\n"))
	require.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	require.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\r\n"))
}
