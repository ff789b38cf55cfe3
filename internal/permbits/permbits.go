// Package permbits translates between 9-character permission strings as printed by ls
// (for example "rwxr-s--T") and numeric permission modes.
package permbits

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Mode holds POSIX permission bits: the rwx triplets plus setuid, setgid and sticky.
type Mode uint32

// Special permission bits.
const (
	SetUID Mode = 0o4000
	SetGID Mode = 0o2000
	Sticky Mode = 0o1000

	// PermMask covers the rwx triplets.
	PermMask Mode = 0o777
)

// Fallback modes substituted when a permission string cannot be parsed.
const (
	DirFallback      Mode = 0o771  // rwxrwx--x
	FileFallback     Mode = 0o660  // rw-rw----
	CacheDirFallback Mode = 0o2771 // rwxrws--x
)

// ErrInvalidFormat is returned when a permission string is malformed.
var ErrInvalidFormat = errors.New("invalid permission string")

// permStringLength is the number of characters in a permission string.
const permStringLength = 9

// triplet describes one of owner/group/other columns.
type triplet struct {
	shift   uint
	special Mode
	setChar byte // special + execute; the uppercase variant means special without execute
}

//nolint:gochecknoglobals
var triplets = [3]triplet{
	{6, SetUID, 's'},
	{3, SetGID, 's'},
	{0, Sticky, 't'},
}

// Parse converts a 9-character permission string into a Mode.
func Parse(s string) (Mode, error) {
	if len(s) != permStringLength {
		return 0, errors.Wrapf(ErrInvalidFormat, "%q: expected %v characters, got %v", s, permStringLength, len(s))
	}

	var m Mode

	for i, tr := range triplets {
		r, w, x := s[i*3], s[i*3+1], s[i*3+2]

		switch r {
		case 'r':
			m |= 4 << tr.shift
		case '-':
		default:
			return 0, invalidChar(s, i*3)
		}

		switch w {
		case 'w':
			m |= 2 << tr.shift
		case '-':
		default:
			return 0, invalidChar(s, i*3+1)
		}

		switch x {
		case 'x':
			m |= 1 << tr.shift
		case '-':
		case tr.setChar:
			m |= 1<<tr.shift | tr.special
		case tr.setChar - 'a' + 'A':
			m |= tr.special
		default:
			return 0, invalidChar(s, i*3+2)
		}
	}

	return m, nil
}

func invalidChar(s string, pos int) error {
	return errors.Wrapf(ErrInvalidFormat, "%q: unexpected character %q at position %v", s, s[pos], pos)
}

// String formats the mode as a 9-character permission string.
func (m Mode) String() string {
	const rwx = "rwx"

	var buf [permStringLength]byte

	for i, tr := range triplets {
		bits := (m >> tr.shift) & 0o7

		for j := range 3 {
			if bits&(4>>j) != 0 {
				buf[i*3+j] = rwx[j]
			} else {
				buf[i*3+j] = '-'
			}
		}

		if m&tr.special != 0 {
			if bits&1 != 0 {
				buf[i*3+2] = tr.setChar
			} else {
				buf[i*3+2] = tr.setChar - 'a' + 'A'
			}
		}
	}

	return string(buf[:])
}

// Octal returns the mode as an octal string, e.g. "2771".
func (m Mode) Octal() string {
	return strconv.FormatUint(uint64(m), 8)
}

// FileMode converts the mode into the equivalent os.FileMode permission and special bits.
func (m Mode) FileMode() os.FileMode {
	fm := os.FileMode(m & PermMask)

	if m&SetUID != 0 {
		fm |= os.ModeSetuid
	}

	if m&SetGID != 0 {
		fm |= os.ModeSetgid
	}

	if m&Sticky != 0 {
		fm |= os.ModeSticky
	}

	return fm
}

// FromFileMode converts os.FileMode permission and special bits into a Mode.
func FromFileMode(fm os.FileMode) Mode {
	m := Mode(fm.Perm())

	if fm&os.ModeSetuid != 0 {
		m |= SetUID
	}

	if fm&os.ModeSetgid != 0 {
		m |= SetGID
	}

	if fm&os.ModeSticky != 0 {
		m |= Sticky
	}

	return m
}
