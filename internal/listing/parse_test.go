package listing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/listing"
	"github.com/shellfs/shellfs/internal/permbits"
	"github.com/shellfs/shellfs/internal/testlogging"
)

func TestParseRegularFile(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		"-rw-rw---- 1 u0_a441 u0_a441 4096 2021-10-19 01:54:32.029625295 +0200 file.txt",
		"", "/data/data/com.example")
	require.NoError(t, err)

	m := res.Metadata
	require.Equal(t, listing.ModeParsed, res.Mode)
	require.Equal(t, fs.RegularFile, m.Type())
	require.Equal(t, int64(4096), m.Size())
	require.Equal(t, "u0_a441", m.Owner().User)
	require.Equal(t, "u0_a441", m.Owner().Group)
	require.True(t, strings.HasSuffix(m.RelativePath(), "file.txt"))
	require.Equal(t, "file.txt", m.RelativePath())
	require.Equal(t, "/data/data/com.example/file.txt", m.AbsolutePath())
	require.Equal(t, permbits.Mode(0o660), m.Perm())
	require.True(t, time.Date(2021, 10, 18, 23, 54, 32, 0, time.UTC).Equal(m.ModTime()))
	require.Equal(t, 0, m.ModTime().Nanosecond())
}

func TestParseSymlink(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		"lrwxrwxrwx 1 root root 61 2021-08-25 16:44:49.757000571 +0200 lib -> /target/arm",
		"app", "/data/app/x")
	require.NoError(t, err)

	m := res.Metadata
	require.Equal(t, fs.Symlink, m.Type())

	target, ok := m.LinkTarget()
	require.True(t, ok)
	require.Equal(t, "/target/arm", target)
	require.NotContains(t, m.RelativePath(), listing.LinkSeparator)
	require.Equal(t, "app/lib", m.RelativePath())
	require.Equal(t, "/data/app/x/lib", m.AbsolutePath())
	require.Equal(t, int64(0), m.Size())
}

func TestParseSymlinkWithArrowInTarget(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		`lrwxrwxrwx 1 root root 9 2021-08-25 16:44:49.757000571 +0200 odd\ name -> a -> b`,
		"", "/x")
	require.NoError(t, err)

	require.Equal(t, "odd name", res.Metadata.RelativePath())

	target, _ := res.Metadata.LinkTarget()
	require.Equal(t, "a -> b", target)
}

func TestParseSymlinkUnderArrowParent(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		"lrwxrwxrwx 1 root root 1 2021-08-25 16:44:49.0 +0200 l -> t",
		"x -> y", "/data/x -> y")
	require.NoError(t, err)

	require.Equal(t, "x -> y/l", res.Metadata.RelativePath())
	require.Equal(t, "/data/x -> y/l", res.Metadata.AbsolutePath())

	target, _ := res.Metadata.LinkTarget()
	require.Equal(t, "t", target)
}

func TestParseTypes(t *testing.T) {
	ctx := testlogging.Context(t)

	cases := map[string]fs.FileType{
		"drwxrwx--x 2 u0 u0 3452 2021-10-19 01:54:32.0 +0200 d":    fs.Directory,
		"prw------- 1 u0 u0 0 2021-10-19 01:54:32.0 +0200 p":       fs.NamedPipe,
		"srwxrwxrwx 1 u0 u0 0 2021-10-19 01:54:32.0 +0200 s":       fs.Socket,
		"brw------- 1 root root 7, 0 2021-10-19 01:54:32.0 +0200 b": fs.BlockDevice,
		"crw-rw-rw- 1 root root 1,   3 2021-10-19 01:54:32.0 +0000 c": fs.CharDevice,
		"crw-rw-rw- 1 root root 1,3 2021-10-19 01:54:32.0 +0000 c2":   fs.CharDevice,
		"?rw-rw---- 1 u0 u0 12 2021-10-19 01:54:32.0 +0200 weird":   fs.RegularFile,
	}

	for line, want := range cases {
		res, err := listing.ParseLine(ctx, line, "", "/x")
		require.NoError(t, err, line)
		require.Equal(t, want, res.Metadata.Type(), line)
		require.Equal(t, listing.ModeParsed, res.Mode, line)

		if want != fs.RegularFile {
			require.Equal(t, int64(0), res.Metadata.Size(), line)
		}
	}
}

func TestParseDeviceKeepsTimestamp(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx, "crw-rw-rw- 1 root root 1,   3 2021-10-19 01:54:32.5 +0000 null", "dev", "/dev")
	require.NoError(t, err)
	require.Equal(t, "dev/null", res.Metadata.RelativePath())
	require.True(t, time.Date(2021, 10, 19, 1, 54, 32, 0, time.UTC).Equal(res.Metadata.ModTime()))
}

func TestParseEscapedName(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		`-rw-rw---- 1 u0 u0 1 2021-10-19 01:54:32.0 +0200 a\ b\nc\303\251`,
		"sub", "/x/sub")
	require.NoError(t, err)
	require.Equal(t, "sub/a b\ncé", res.Metadata.RelativePath())
	require.Equal(t, "/x/sub/a b\ncé", res.Metadata.AbsolutePath())
}

func TestParseSingleFileListing(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		"-rw-rw---- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 /data/data/com.example/files/a.txt",
		"", "/data/data/com.example/files/a.txt")
	require.NoError(t, err)
	require.Equal(t, "a.txt", res.Metadata.RelativePath())
	require.Equal(t, "/data/data/com.example/files", res.Metadata.ParentPath())
	require.Equal(t, "/data/data/com.example/files/a.txt", res.Metadata.AbsolutePath())

	res, err = listing.ParseLine(ctx,
		"lrwxrwxrwx 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 /data/lib -> /system/lib",
		"", "/data/lib")
	require.NoError(t, err)
	require.Equal(t, "lib", res.Metadata.RelativePath())
	require.Equal(t, "/data/lib", res.Metadata.AbsolutePath())

	target, _ := res.Metadata.LinkTarget()
	require.Equal(t, "/system/lib", target)
}

func TestParseNameSharingPrefixWithDirectory(t *testing.T) {
	ctx := testlogging.Context(t)

	cases := []struct {
		line    string
		parent  string
		wantRel string
		wantAbs string
	}{
		{"-rw------- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 .profile", ".", ".profile", "./.profile"},
		{"-rw------- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 foobar", "foo", "foobar", "foo/foobar"},
		{"drwx------ 2 u0 u0 4096 2021-10-19 01:54:32.0 +0200 foo", "foo", "foo", "foo/foo"},
		{"-rw------- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 datafile", "/data", "datafile", "/data/datafile"},
	}

	for _, tc := range cases {
		res, err := listing.ParseLine(ctx, tc.line, "", tc.parent)
		require.NoError(t, err, tc.line)
		require.Equal(t, tc.wantRel, res.Metadata.RelativePath(), tc.line)
		require.Equal(t, tc.wantAbs, res.Metadata.AbsolutePath(), tc.line)
	}
}

func TestParseSingleRelativeEntry(t *testing.T) {
	ctx := testlogging.Context(t)

	res, err := listing.ParseLine(ctx,
		"-rw-rw---- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 foo",
		"", ".")
	require.NoError(t, err)
	require.Equal(t, "foo", res.Metadata.RelativePath())
	require.Equal(t, ".", res.Metadata.ParentPath())
	require.Equal(t, "./foo", res.Metadata.AbsolutePath())

	res, err = listing.ParseLine(ctx,
		"-rw-rw---- 1 u0 u0 10 2021-10-19 01:54:32.0 +0200 files/foo",
		"", "files")
	require.NoError(t, err)
	require.Equal(t, "foo", res.Metadata.RelativePath())
	require.Equal(t, "files/foo", res.Metadata.AbsolutePath())
}

func TestParseCacheFallback(t *testing.T) {
	ctx, lines := testlogging.ContextWithCapture(t)

	for _, name := range []string{"cache", "code_cache"} {
		res, err := listing.ParseLine(ctx,
			"drwxrws?-x 2 u0 u0_cache 3452 2021-10-19 01:54:32.0 +0200 "+name,
			"", "/data/data/com.example")
		require.NoError(t, err)
		require.Equal(t, listing.ModeCacheFallback, res.Mode)
		require.Equal(t, permbits.CacheDirFallback, res.Metadata.Perm())
		require.ErrorIs(t, res.ModeErr, permbits.ErrInvalidFormat)
	}

	require.Empty(t, *lines)
}

func TestParseTypeFallback(t *testing.T) {
	ctx, lines := testlogging.ContextWithCapture(t)

	res, err := listing.ParseLine(ctx,
		"drwxrws?-x 2 u0 u0 3452 2021-10-19 01:54:32.0 +0200 files",
		"", "/data/data/com.example")
	require.NoError(t, err)
	require.Equal(t, listing.ModeTypeFallback, res.Mode)
	require.Equal(t, permbits.DirFallback, res.Metadata.Perm())

	res, err = listing.ParseLine(ctx,
		"-rw-rw----+ 1 u0 u0 7 2021-10-19 01:54:32.0 +0200 ok",
		"", "/data/data/com.example")
	require.NoError(t, err)
	require.Equal(t, listing.ModeParsed, res.Mode)

	res, err = listing.ParseLine(ctx,
		"-rw-? 1 u0 u0 7 2021-10-19 01:54:32.0 +0200 short",
		"", "/data/data/com.example")
	require.NoError(t, err)
	require.Equal(t, listing.ModeTypeFallback, res.Mode)
	require.Equal(t, permbits.FileFallback, res.Metadata.Perm())

	require.Len(t, *lines, 2)
	require.Contains(t, (*lines)[0], `"drwxrws?-x"`)
	require.Contains(t, (*lines)[0], "/data/data/com.example/files")
	require.Contains(t, (*lines)[1], "/data/data/com.example/short")
}

func TestParseErrors(t *testing.T) {
	ctx := testlogging.Context(t)

	for _, line := range []string{
		"-rw-rw---- 1 u0 u0 abc 2021-10-19 01:54:32.0 +0200 file",
		"-rw-rw---- 1 u0 u0 1 2021/10/19 01:54:32.0 +0200 file",
		"-rw-rw---- 1 u0 u0 1 2021-10-19 01:54 +0200 file",
		"-rw-rw---- 1 u0 u0 1 2021-10-19 01:54:32.0 CEST file",
		"not enough tokens",
		"crw-rw-rw- 1 root root 1, 3 2021-10-19 01:54:32.0 +0000",
	} {
		_, err := listing.ParseLine(ctx, line, "", "/x")
		require.Error(t, err, line)
	}
}
