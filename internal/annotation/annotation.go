// Package annotation reads Windows Help Annotation (.ANN) files. An .ANN
// file is a container in the exact same format as an .HLP file (same
// HelpHeader, same B+ tree directory); it just carries a different set of
// internal files: "@VERSION", "@LINK", and one "<topic_offset>!0" plain-text
// file per user annotation.
package annotation

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/go-winhlp/winhlp/internal/charset"
	"github.com/go-winhlp/winhlp/internal/container"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// Reference is one @LINK entry: which topic an annotation attaches to.
// The two unknown fields are documented as always zero; kept for forensic
// round-tripping rather than discarded.
type Reference struct {
	TopicOffset      int32
	Unknown1, Unknown2 int32
}

// File is a parsed .ANN file.
type File struct {
	Version     []byte // the 6-byte @VERSION payload, if present
	Links       []Reference
	Annotations map[int32]string // topic offset -> plain-text annotation
}

// Parse reads an already-opened .ANN container (see internal/container.Open;
// .ANN files share the .HLP container format byte-for-byte).
func Parse(c *container.Container) (*File, error) {
	f := &File{Annotations: make(map[int32]string)}

	if c.Has("@VERSION") {
		_, payload, err := c.File("@VERSION")
		if err != nil {
			return nil, err
		}
		if len(payload) >= 6 {
			f.Version = payload[:6]
		}
	}

	if c.Has("@LINK") {
		_, payload, err := c.File("@LINK")
		if err != nil {
			return nil, err
		}
		refs, err := parseLinks(payload)
		if err != nil {
			return nil, err
		}
		f.Links = refs
	}

	for _, ref := range f.Links {
		name := fmt.Sprintf("%d!0", ref.TopicOffset)
		if !c.Has(name) {
			continue
		}
		_, payload, err := c.File(name)
		if err != nil {
			return nil, err
		}
		f.Annotations[ref.TopicOffset] = charset.Decode(charmap.Windows1252, payload)
	}

	return f, nil
}

func parseLinks(payload []byte) ([]Reference, error) {
	if len(payload) < 2 {
		return nil, nil
	}
	n := int(binary.LittleEndian.Uint16(payload[0:2]))
	offset := 2
	refs := make([]Reference, 0, n)
	for i := 0; i < n; i++ {
		if offset+12 > len(payload) {
			return nil, &werr.TruncatedRecord{Component: "ann-link", Offset: offset, Need: 12, Have: len(payload) - offset}
		}
		refs = append(refs, Reference{
			TopicOffset: int32(binary.LittleEndian.Uint32(payload[offset : offset+4])),
			Unknown1:    int32(binary.LittleEndian.Uint32(payload[offset+4 : offset+8])),
			Unknown2:    int32(binary.LittleEndian.Uint32(payload[offset+8 : offset+12])),
		})
		offset += 12
	}
	return refs, nil
}

// AnnotationFilename reports whether name matches the "<topic_offset>!0"
// pattern used for per-topic annotation text files, returning the parsed
// topic offset.
func AnnotationFilename(name string) (topicOffset int32, ok bool) {
	i := strings.IndexByte(name, '!')
	if i < 0 || name[i+1:] != "0" {
		return 0, false
	}
	v, err := strconv.ParseInt(name[:i], 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}
