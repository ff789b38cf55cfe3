// Package fs describes filesystem entries reported by a privileged shell.
package fs

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/permbits"
)

// ErrEntryNotFound is returned when an entry is not found.
var ErrEntryNotFound = errors.New("entry not found")

// OwnerInfo describes owner of a filesystem entry, as reported by the listing tool.
type OwnerInfo struct {
	User  string `json:"user"`
	Group string `json:"group"`
}

// Variant carries the type-specific part of Metadata.
type Variant interface {
	fileType() FileType
}

// RegularFileInfo is the variant of regular files.
type RegularFileInfo struct {
	Size int64
}

func (RegularFileInfo) fileType() FileType { return RegularFile }

// SymlinkInfo is the variant of symbolic links; Target is the link target as reported, not resolved.
type SymlinkInfo struct {
	Target string
}

func (SymlinkInfo) fileType() FileType { return Symlink }

// SpecialInfo is the variant of directories, pipes, sockets and devices.
type SpecialInfo struct {
	Type FileType
}

func (s SpecialInfo) fileType() FileType { return s.Type }

// MetadataParams holds all fields needed to construct Metadata.
type MetadataParams struct {
	RelativePath string
	ParentPath   string
	Owner        OwnerInfo
	Perm         permbits.Mode
	ModTime      time.Time
	Variant      Variant
}

// Metadata is an immutable description of a single filesystem entry.
type Metadata struct {
	relativePath string
	parentPath   string
	owner        OwnerInfo
	perm         permbits.Mode
	modTime      time.Time
	variant      Variant
}

// NewMetadata validates the provided parameters and returns Metadata.
func NewMetadata(p MetadataParams) (Metadata, error) {
	switch v := p.Variant.(type) {
	case nil:
		return Metadata{}, errors.New("missing file type variant")
	case RegularFileInfo:
		if v.Size < 0 {
			return Metadata{}, errors.Errorf("negative size %v", v.Size)
		}
	case SymlinkInfo:
	case SpecialInfo:
		if v.Type == RegularFile || v.Type == Symlink {
			return Metadata{}, errors.Errorf("%v is not a special file type", v.Type)
		}

		if v.Type.Indicator() == '-' {
			return Metadata{}, errors.Errorf("unknown file type %d", int(v.Type))
		}
	}

	if p.RelativePath == "" {
		return Metadata{}, errors.New("empty relative path")
	}

	return Metadata{
		relativePath: p.RelativePath,
		parentPath:   p.ParentPath,
		owner:        p.Owner,
		perm:         p.Perm,
		modTime:      p.ModTime,
		variant:      p.Variant,
	}, nil
}

// RelativePath returns the path relative to the logical root of the listing.
func (m Metadata) RelativePath() string {
	return m.relativePath
}

// ParentPath returns the absolute path of the directory containing the entry.
func (m Metadata) ParentPath() string {
	return m.parentPath
}

// AbsolutePath returns the absolute path of the entry, derived from the parent path and name.
func (m Metadata) AbsolutePath() string {
	if strings.HasSuffix(m.parentPath, "/") {
		return m.parentPath + m.Name()
	}

	return m.parentPath + "/" + m.Name()
}

// Name returns the base name of the entry.
func (m Metadata) Name() string {
	if p := strings.LastIndexByte(m.relativePath, '/'); p >= 0 {
		return m.relativePath[p+1:]
	}

	return m.relativePath
}

// Type returns the file type.
func (m Metadata) Type() FileType {
	if m.variant == nil {
		return RegularFile
	}

	return m.variant.fileType()
}

// Variant returns the type-specific part of the entry.
func (m Metadata) Variant() Variant {
	return m.variant
}

// Size returns the size of a regular file, zero for all other types.
func (m Metadata) Size() int64 {
	if f, ok := m.variant.(RegularFileInfo); ok {
		return f.Size
	}

	return 0
}

// LinkTarget returns the symbolic link target. The second result is false for non-symlinks.
func (m Metadata) LinkTarget() (string, bool) {
	if l, ok := m.variant.(SymlinkInfo); ok {
		return l.Target, true
	}

	return "", false
}

// Owner returns the owner and group names.
func (m Metadata) Owner() OwnerInfo {
	return m.owner
}

// Perm returns permission bits.
func (m Metadata) Perm() permbits.Mode {
	return m.perm
}

// Mode returns the os.FileMode with type and permission bits.
func (m Metadata) Mode() os.FileMode {
	return m.Type().ModeBits() | m.perm.FileMode()
}

// ModTime returns the modification time, with one-second precision.
func (m Metadata) ModTime() time.Time {
	return m.modTime
}

// IsDir returns true for directories.
func (m Metadata) IsDir() bool {
	return m.Type() == Directory
}

// Sys implements os.FileInfo.
func (m Metadata) Sys() any {
	return nil
}

// String returns a one-line ls-style description.
func (m Metadata) String() string {
	s := string(m.Type().Indicator()) + m.perm.String() + " " + m.owner.User + " " + m.owner.Group + " " + m.relativePath

	if t, ok := m.LinkTarget(); ok {
		s += " -> " + t
	}

	return s
}

type metadataJSON struct {
	Path         string    `json:"path"`
	AbsolutePath string    `json:"absolutePath"`
	Type         FileType  `json:"type"`
	Owner        OwnerInfo `json:"owner"`
	Mode         string    `json:"mode"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"mtime"`
	LinkTarget   string    `json:"linkTarget,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	target, _ := m.LinkTarget()

	//nolint:wrapcheck
	return json.Marshal(metadataJSON{
		Path:         m.relativePath,
		AbsolutePath: m.AbsolutePath(),
		Type:         m.Type(),
		Owner:        m.owner,
		Mode:         m.perm.Octal(),
		Size:         m.Size(),
		ModTime:      m.modTime,
		LinkTarget:   target,
	})
}

var _ os.FileInfo = Metadata{}
