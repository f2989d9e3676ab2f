package container

import (
	"github.com/go-winhlp/winhlp/internal/btree"
	"github.com/go-winhlp/winhlp/internal/cursor"
)

// Directory maps internal filenames (e.g. "|SYSTEM", "|TOPIC") to their
// FILEHEADER offset within the file. It is built once, from the B+ tree
// rooted at HelpHeader.DirectoryStart, and is immutable afterward.
type Directory struct {
	files map[string]int32
}

// parseDirectory reads the directory's own FILEHEADER at raw[start:] and
// then its B+ tree body, populating a filename->offset table. A malformed
// entry stops decoding of its leaf page only (per internal/btree.Walk);
// well-formed entries elsewhere in the tree are still found.
func parseDirectory(raw []byte, start int32) (Directory, error) {
	_, body, err := readFileHeader("directory", raw, int(start))
	if err != nil {
		return Directory{}, err
	}
	tree, err := btree.Open("directory", body)
	if err != nil {
		return Directory{}, err
	}

	d := Directory{files: make(map[string]int32)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("directory", page, offset)
		name, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		fileOffset, err := c.I32()
		if err != nil {
			return nil, 0, false
		}
		return directoryEntry{name: string(name), offset: fileOffset}, c.Pos(), true
	}
	err = btree.Walk(tree, "directory", parse, func(e interface{}) {
		de := e.(directoryEntry)
		d.files[de.name] = de.offset
	})
	if err != nil {
		return Directory{}, err
	}
	return d, nil
}

type directoryEntry struct {
	name   string
	offset int32
}

// Lookup returns the FILEHEADER offset for name, if present.
func (d Directory) Lookup(name string) (int32, bool) {
	off, ok := d.files[name]
	return off, ok
}

// Names returns every filename known to the directory, in no particular
// order.
func (d Directory) Names() []string {
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	return names
}
