package annotation

import (
	"encoding/binary"
	"testing"

	"github.com/go-winhlp/winhlp/internal/container"
)

const (
	headerMagic   = 0x00035F3F
	fileHeaderSize = 9
)

// buildAnnFile assembles a minimal valid .ANN container (same framing as
// .HLP) holding "@VERSION", "@LINK", and one "<topic_offset>!0" text file.
func buildAnnFile(t *testing.T) []byte {
	t.Helper()

	const dirStart = 16
	const dirPageSize = 1024

	version := []byte{0x08, 0x62, 0x6D, 0x66, 0x01, 0x00}

	link := make([]byte, 2)
	binary.LittleEndian.PutUint16(link[0:2], 1)
	ref := make([]byte, 12)
	binary.LittleEndian.PutUint32(ref[0:4], 500)
	binary.LittleEndian.PutUint32(ref[4:8], 0)
	binary.LittleEndian.PutUint32(ref[8:12], 0)
	link = append(link, ref...)

	text := []byte("This topic needs more examples.")

	files := []struct {
		name    string
		payload []byte
	}{
		{"@VERSION", version},
		{"@LINK", link},
		{"500!0", text},
	}

	// Lay out internal files after a single-page directory tree, back to
	// back, each preceded by its own 9-byte FILEHEADER.
	offset := int32(dirStart + fileHeaderSize + 38 + dirPageSize)
	var body []byte
	var dirEntries []byte
	offsets := make([]int32, len(files))
	for i, f := range files {
		offsets[i] = offset
		fh := make([]byte, fileHeaderSize)
		binary.LittleEndian.PutUint32(fh[0:4], uint32(len(f.payload)))
		binary.LittleEndian.PutUint32(fh[4:8], uint32(len(f.payload)))
		fh[8] = 4
		body = append(body, fh...)
		body = append(body, f.payload...)
		offset += int32(fileHeaderSize + len(f.payload))

		dirEntries = append(dirEntries, []byte(f.name)...)
		dirEntries = append(dirEntries, 0)
		offBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(offBytes, uint32(offsets[i]))
		dirEntries = append(dirEntries, offBytes...)
	}

	page := make([]byte, dirPageSize)
	binary.LittleEndian.PutUint16(page[2:4], uint16(len(files)))
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF)
	copy(page[8:], dirEntries)

	btreeHeader := make([]byte, 38)
	binary.LittleEndian.PutUint16(btreeHeader[0:2], 0x293B)
	binary.LittleEndian.PutUint16(btreeHeader[4:6], dirPageSize)
	binary.LittleEndian.PutUint16(btreeHeader[30:32], 1)
	binary.LittleEndian.PutUint16(btreeHeader[32:34], 1)
	binary.LittleEndian.PutUint32(btreeHeader[34:38], uint32(len(files)))

	dirBody := append(btreeHeader, page...)
	dirFileHeader := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint32(dirFileHeader[0:4], uint32(len(dirBody)))
	binary.LittleEndian.PutUint32(dirFileHeader[4:8], uint32(len(dirBody)))
	dirFileHeader[8] = 4

	raw := make([]byte, 16)
	binary.LittleEndian.PutUint32(raw[0:4], headerMagic)
	binary.LittleEndian.PutUint32(raw[4:8], dirStart)
	binary.LittleEndian.PutUint32(raw[8:12], 0xFFFFFFFF)
	raw = append(raw, dirFileHeader...)
	raw = append(raw, dirBody...)

	if int32(len(raw)) != offsets[0] {
		t.Fatalf("layout mismatch: len(raw)=%d, first file offset=%d", len(raw), offsets[0])
	}
	raw = append(raw, body...)
	binary.LittleEndian.PutUint32(raw[12:16], uint32(len(raw)))
	return raw
}

func TestParseAnnotationFile(t *testing.T) {
	raw := buildAnnFile(t)
	c, err := container.Open(raw)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Parse(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Version) != 6 {
		t.Fatalf("Version = %v", f.Version)
	}
	if len(f.Links) != 1 || f.Links[0].TopicOffset != 500 {
		t.Fatalf("Links = %+v", f.Links)
	}
	text, ok := f.Annotations[500]
	if !ok || text != "This topic needs more examples." {
		t.Fatalf("Annotations[500] = %q, %v", text, ok)
	}
}

func TestAnnotationFilenameParsing(t *testing.T) {
	off, ok := AnnotationFilename("500!0")
	if !ok || off != 500 {
		t.Fatalf("AnnotationFilename(500!0) = %d, %v", off, ok)
	}
	if _, ok := AnnotationFilename("|SYSTEM"); ok {
		t.Error("expected |SYSTEM to not match")
	}
	if _, ok := AnnotationFilename("500!1"); ok {
		t.Error("expected 500!1 (context-string file) to not match")
	}
}
