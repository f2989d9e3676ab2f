package container

import "github.com/go-winhlp/winhlp/internal/werr"

// Container is a parsed WinHelp file: the fixed header, the internal-file
// directory, and a reference to the whole file's bytes (internal files
// address each other by absolute offset, so components below this layer
// keep working against the original buffer rather than private copies).
type Container struct {
	Header    Header
	Directory Directory
	raw       []byte
}

// Open parses raw as a complete WinHelp (or bookmark/annotation, both of
// which share this container format) file.
func Open(raw []byte) (*Container, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	dir, err := parseDirectory(raw, h.DirectoryStart)
	if err != nil {
		return nil, err
	}
	return &Container{Header: h, Directory: dir, raw: raw}, nil
}

// File returns the FILEHEADER and payload (the UsedSpace bytes following
// it) for the named internal file.
func (c *Container) File(name string) (FileHeader, []byte, error) {
	off, ok := c.Directory.Lookup(name)
	if !ok {
		return FileHeader{}, nil, &werr.UnsupportedFeature{Feature: "internal file " + name + " not present"}
	}
	return readFileHeader(name, c.raw, int(off))
}

// RawFile returns the bytes starting at the named internal file's
// FILEHEADER, i.e. with the 9-byte header still attached. The decoders in
// this module, |PhrImage, |TopicId and |TTLBTREE included, all read their
// payloads through File; RawFile serves callers that need the header bytes
// as well.
func (c *Container) RawFile(name string) ([]byte, error) {
	off, ok := c.Directory.Lookup(name)
	if !ok {
		return nil, &werr.UnsupportedFeature{Feature: "internal file " + name + " not present"}
	}
	if int(off) < 0 || int(off) > len(c.raw) {
		return nil, &werr.TruncatedRecord{Component: name, Offset: int(off), Need: fileHeaderSize, Have: len(c.raw)}
	}
	return c.raw[off:], nil
}

// Has reports whether the directory contains an internal file by that
// name, without reading its FILEHEADER.
func (c *Container) Has(name string) bool {
	_, ok := c.Directory.Lookup(name)
	return ok
}
