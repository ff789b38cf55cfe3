package fs_test

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/permbits"
)

func mustMetadata(t *testing.T, p fs.MetadataParams) fs.Metadata {
	t.Helper()

	m, err := fs.NewMetadata(p)
	require.NoError(t, err)

	return m
}

func TestMetadataRegularFile(t *testing.T) {
	mt := time.Date(2021, 10, 19, 1, 54, 32, 0, time.FixedZone("", 7200))

	m := mustMetadata(t, fs.MetadataParams{
		RelativePath: "files/file.txt",
		ParentPath:   "/data/data/com.example/files",
		Owner:        fs.OwnerInfo{User: "u0_a441", Group: "u0_a441"},
		Perm:         0o660,
		ModTime:      mt,
		Variant:      fs.RegularFileInfo{Size: 4096},
	})

	require.Equal(t, fs.RegularFile, m.Type())
	require.Equal(t, "file.txt", m.Name())
	require.Equal(t, "/data/data/com.example/files/file.txt", m.AbsolutePath())
	require.Equal(t, int64(4096), m.Size())
	require.Equal(t, os.FileMode(0o660), m.Mode())
	require.False(t, m.IsDir())
	require.Equal(t, mt, m.ModTime())

	_, ok := m.LinkTarget()
	require.False(t, ok)

	require.Equal(t, "-rw-rw---- u0_a441 u0_a441 files/file.txt", m.String())
}

func TestMetadataSymlink(t *testing.T) {
	m := mustMetadata(t, fs.MetadataParams{
		RelativePath: "lib",
		ParentPath:   "/",
		Perm:         0o777,
		Variant:      fs.SymlinkInfo{Target: "/target/arm"},
	})

	require.Equal(t, fs.Symlink, m.Type())
	require.Equal(t, "/lib", m.AbsolutePath())
	require.Equal(t, int64(0), m.Size())
	require.Equal(t, os.ModeSymlink|0o777, m.Mode())

	target, ok := m.LinkTarget()
	require.True(t, ok)
	require.Equal(t, "/target/arm", target)
}

func TestMetadataDirectory(t *testing.T) {
	m := mustMetadata(t, fs.MetadataParams{
		RelativePath: "cache",
		ParentPath:   "/data",
		Perm:         permbits.CacheDirFallback,
		Variant:      fs.SpecialInfo{Type: fs.Directory},
	})

	require.True(t, m.IsDir())
	require.Equal(t, os.ModeDir|os.ModeSetgid|0o771, m.Mode())
}

func TestNewMetadataRejectsInvalidVariants(t *testing.T) {
	for _, v := range []fs.Variant{
		nil,
		fs.SpecialInfo{Type: fs.RegularFile},
		fs.SpecialInfo{Type: fs.Symlink},
		fs.SpecialInfo{Type: fs.FileType(99)},
		fs.RegularFileInfo{Size: -1},
	} {
		_, err := fs.NewMetadata(fs.MetadataParams{RelativePath: "x", Variant: v})
		require.Error(t, err, "%#v", v)
	}

	_, err := fs.NewMetadata(fs.MetadataParams{Variant: fs.RegularFileInfo{}})
	require.Error(t, err)
}

func TestMetadataJSON(t *testing.T) {
	m := mustMetadata(t, fs.MetadataParams{
		RelativePath: "a/lnk",
		ParentPath:   "/root/a",
		Owner:        fs.OwnerInfo{User: "root", Group: "wheel"},
		Perm:         0o777,
		ModTime:      time.Date(2021, 8, 25, 16, 44, 49, 0, time.UTC),
		Variant:      fs.SymlinkInfo{Target: "../b"},
	})

	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"path": "a/lnk",
		"absolutePath": "/root/a/lnk",
		"type": "symlink",
		"owner": {"user": "root", "group": "wheel"},
		"mode": "777",
		"size": 0,
		"mtime": "2021-08-25T16:44:49Z",
		"linkTarget": "../b"
	}`, string(b))
}

func TestFileTypeFromIndicator(t *testing.T) {
	cases := map[byte]fs.FileType{
		'd': fs.Directory,
		'l': fs.Symlink,
		'p': fs.NamedPipe,
		's': fs.Socket,
		'b': fs.BlockDevice,
		'c': fs.CharDevice,
		'-': fs.RegularFile,
		'?': fs.RegularFile,
	}

	for c, want := range cases {
		got := fs.FileTypeFromIndicator(c)
		require.Equal(t, want, got, "%c", c)

		if c != '?' {
			require.Equal(t, c, got.Indicator())
		}
	}

	var ft fs.FileType
	require.NoError(t, ft.UnmarshalText([]byte("socket")))
	require.Equal(t, fs.Socket, ft)
	require.Error(t, ft.UnmarshalText([]byte("bogus")))
}

func TestEntries(t *testing.T) {
	e := fs.Entries{
		mustMetadata(t, fs.MetadataParams{RelativePath: "b", ParentPath: "/x", Variant: fs.SpecialInfo{Type: fs.Directory}}),
		mustMetadata(t, fs.MetadataParams{RelativePath: "a", ParentPath: "/x", Variant: fs.RegularFileInfo{Size: 10}}),
		mustMetadata(t, fs.MetadataParams{RelativePath: "b/c", ParentPath: "/x/b", Variant: fs.RegularFileInfo{Size: 5}}),
	}

	require.Equal(t, int64(15), e.TotalSize())
	require.Len(t, e.Directories(), 1)

	found, ok := e.FindByRelativePath("b/c")
	require.True(t, ok)
	require.Equal(t, "/x/b/c", found.AbsolutePath())

	_, ok = e.FindByRelativePath("missing")
	require.False(t, ok)

	e.Sort()
	require.Equal(t, "a", e[0].RelativePath())
	require.Equal(t, "b/c", e[2].RelativePath())
}
