package fs

import (
	"os"

	"github.com/pkg/errors"
)

// FileType identifies the kind of filesystem entry.
type FileType int

// Supported file types.
const (
	RegularFile FileType = iota
	Directory
	Symlink
	NamedPipe
	Socket
	BlockDevice
	CharDevice
)

//nolint:gochecknoglobals
var fileTypeNames = map[FileType]string{
	RegularFile: "file",
	Directory:   "dir",
	Symlink:     "symlink",
	NamedPipe:   "pipe",
	Socket:      "socket",
	BlockDevice: "block",
	CharDevice:  "char",
}

func (t FileType) String() string {
	if n, ok := fileTypeNames[t]; ok {
		return n
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t FileType) MarshalText() ([]byte, error) {
	if _, ok := fileTypeNames[t]; !ok {
		return nil, errors.Errorf("unknown file type %d", int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FileType) UnmarshalText(b []byte) error {
	for k, v := range fileTypeNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}

	return errors.Errorf("unknown file type %q", b)
}

// FileTypeFromIndicator maps the first character of an ls permission column to a FileType.
// Unknown indicators are treated as regular files.
func FileTypeFromIndicator(c byte) FileType {
	switch c {
	case 'd':
		return Directory
	case 'l':
		return Symlink
	case 'p':
		return NamedPipe
	case 's':
		return Socket
	case 'b':
		return BlockDevice
	case 'c':
		return CharDevice
	default:
		return RegularFile
	}
}

// Indicator returns the ls type character for t.
func (t FileType) Indicator() byte {
	switch t {
	case Directory:
		return 'd'
	case Symlink:
		return 'l'
	case NamedPipe:
		return 'p'
	case Socket:
		return 's'
	case BlockDevice:
		return 'b'
	case CharDevice:
		return 'c'
	default:
		return '-'
	}
}

// ModeBits returns the os.FileMode type bits corresponding to t.
func (t FileType) ModeBits() os.FileMode {
	switch t {
	case Directory:
		return os.ModeDir
	case Symlink:
		return os.ModeSymlink
	case NamedPipe:
		return os.ModeNamedPipe
	case Socket:
		return os.ModeSocket
	case BlockDevice:
		return os.ModeDevice
	case CharDevice:
		return os.ModeDevice | os.ModeCharDevice
	default:
		return 0
	}
}
