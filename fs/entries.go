package fs

import "sort"

// Entries is a list of entries in listing order.
type Entries []Metadata

// FindByRelativePath returns the entry with a given relative path.
func (e Entries) FindByRelativePath(p string) (Metadata, bool) {
	for _, it := range e {
		if it.RelativePath() == p {
			return it, true
		}
	}

	return Metadata{}, false
}

// Directories returns entries that are directories, preserving order.
func (e Entries) Directories() Entries {
	var res Entries

	for _, it := range e {
		if it.IsDir() {
			res = append(res, it)
		}
	}

	return res
}

// TotalSize returns the sum of sizes of all regular files.
func (e Entries) TotalSize() int64 {
	var total int64

	for _, it := range e {
		total += it.Size()
	}

	return total
}

// Sort sorts the entries by relative path.
func (e Entries) Sort() {
	sort.Slice(e, func(i, j int) bool {
		return e[i].RelativePath() < e[j].RelativePath()
	})
}
