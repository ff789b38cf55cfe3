package listing

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/permbits"
	"github.com/shellfs/shellfs/logging"
)

var log = logging.Module("shellfs/listing")

// LinkSeparator separates a symlink name from its target in listing output.
const LinkSeparator = " -> "

// timeLayout matches "<date> <time> <zone>" after the fractional seconds have been dropped.
const timeLayout = "2006-01-02 15:04:05 -0700"

// permColumnLength is the length of the type indicator plus the 9 permission characters.
const permColumnLength = 10

// Heuristic for app data directories named cache or code_cache, which carry the setgid bit.
// When their permission column cannot be parsed they get CacheDirFallback instead of the
// generic directory default, and no warning is logged. Other special-bit directories are not
// covered.
//
//nolint:gochecknoglobals
var cacheDirNames = map[string]bool{
	"cache":      true,
	"code_cache": true,
}

// ModeOutcome describes how the permission bits of a parsed entry were obtained.
type ModeOutcome int

// Possible mode outcomes.
const (
	ModeParsed        ModeOutcome = iota // parsed from the permission column
	ModeCacheFallback                    // unparseable, entry named cache or code_cache
	ModeTypeFallback                     // unparseable, directory or regular-file default
)

func (o ModeOutcome) String() string {
	switch o {
	case ModeParsed:
		return "parsed"
	case ModeCacheFallback:
		return "cache-fallback"
	case ModeTypeFallback:
		return "type-fallback"
	default:
		return "unknown"
	}
}

// Result is the outcome of parsing one listing line.
type Result struct {
	Metadata fs.Metadata
	Mode     ModeOutcome
	ModeErr  error // set when Mode is not ModeParsed
}

// tokens returns the fields of a listing line, merging the "major, minor" size column of
// device entries so that the date columns stay aligned.
func tokens(line string) ([]string, error) {
	t, ok := Tokenize(line, TokenCount)
	if !ok {
		return nil, errors.Errorf("expected at least %v fields in %q", TokenCount, line)
	}

	ft := fs.FileTypeFromIndicator(t[0][0])
	if (ft == fs.BlockDevice || ft == fs.CharDevice) && strings.HasSuffix(t[4], ",") {
		t10, ok := Tokenize(line, TokenCount+1)
		if !ok {
			return nil, errors.Errorf("malformed device entry %q", line)
		}

		t = append(append(t10[:4:4], t10[4]+t10[5]), t10[6:]...)
	}

	return t, nil
}

// ParseLine parses one line of "ls -bAll" output.
//
// relativeParent is prepended to the entry name to form the relative path; absoluteParent is the
// directory that was listed, or the directory containing the entry of a single-entry listing.
// Unparseable permission strings never fail the line, they degrade to a fallback mode reported in
// Result.Mode and logged as a warning. An error is returned only when the
// size of a regular file or the timestamp cannot be parsed.
func ParseLine(ctx context.Context, line, relativeParent, absoluteParent string) (Result, error) {
	t, err := tokens(line)
	if err != nil {
		return Result{}, err
	}

	ft := fs.FileTypeFromIndicator(t[0][0])
	rawName, rawTarget := t[8], ""

	if ft == fs.Symlink {
		if p := strings.Index(rawName, LinkSeparator); p >= 0 {
			rawName, rawTarget = rawName[:p], rawName[p+len(LinkSeparator):]
		}
	}

	name := DecodeEscapes(rawName)
	parent := absoluteParent

	// entry names never contain a slash, so this is a single-entry listing echoing its path.
	if strings.Contains(name, "/") {
		parent, name = path.Dir(name), path.Base(name)
	}

	relativePath := name
	if relativeParent != "" {
		relativePath = relativeParent + "/" + name
	}

	var variant fs.Variant

	switch ft {
	case fs.RegularFile:
		size, err := strconv.ParseInt(t[4], 10, 64)
		if err != nil {
			return Result{}, errors.Wrapf(err, "invalid size %q of %v", t[4], relativePath)
		}

		variant = fs.RegularFileInfo{Size: size}

	case fs.Symlink:
		variant = fs.SymlinkInfo{Target: DecodeEscapes(rawTarget)}

	default:
		variant = fs.SpecialInfo{Type: ft}
	}

	res := Result{Mode: ModeParsed}

	perm, err := permbits.Parse(permString(t[0]))
	if err != nil {
		res.ModeErr = err
		perm, res.Mode = fallbackMode(ft, path.Base(relativePath))

		if res.Mode == ModeTypeFallback {
			log(ctx).Warnf("unable to parse permissions %q of %v, using %v: %v",
				t[0], parent+"/"+path.Base(relativePath), perm, err)
		}
	}

	mtime, err := parseTime(t[5], t[6], t[7])
	if err != nil {
		return Result{}, errors.Wrapf(err, "invalid timestamp of %v", relativePath)
	}

	res.Metadata, err = fs.NewMetadata(fs.MetadataParams{
		RelativePath: relativePath,
		ParentPath:   parent,
		Owner:        fs.OwnerInfo{User: t[2], Group: t[3]},
		Perm:         perm,
		ModTime:      mtime,
		Variant:      variant,
	})

	return res, errors.Wrapf(err, "invalid entry %q", line)
}

func permString(column string) string {
	if len(column) < permColumnLength {
		return column[1:]
	}

	return column[1:permColumnLength]
}

func fallbackMode(ft fs.FileType, name string) (permbits.Mode, ModeOutcome) {
	if cacheDirNames[name] {
		return permbits.CacheDirFallback, ModeCacheFallback
	}

	if ft == fs.Directory {
		return permbits.DirFallback, ModeTypeFallback
	}

	return permbits.FileFallback, ModeTypeFallback
}

// parseTime parses date, time and zone columns, discarding fractional seconds.
func parseTime(date, clock, zone string) (time.Time, error) {
	if p := strings.IndexByte(clock, '.'); p >= 0 {
		clock = clock[:p]
	}

	//nolint:wrapcheck
	return time.Parse(timeLayout, date+" "+clock+" "+zone)
}
