package btree

import (
	"encoding/binary"
	"testing"
)

// buildSingleLevelTree constructs a minimal one-page, one-level tree whose
// single leaf page holds the given pre-encoded entry bytes.
func buildSingleLevelTree(t *testing.T, pageSize uint16, entries int, entryBytes []byte) []byte {
	t.Helper()
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(header[0:2], magic)
	binary.LittleEndian.PutUint16(header[4:6], pageSize)
	binary.LittleEndian.PutUint16(header[26:28], 0) // RootPage = 0
	binary.LittleEndian.PutUint16(header[30:32], 1) // TotalPages = 1
	binary.LittleEndian.PutUint16(header[32:34], 1) // NLevels = 1
	binary.LittleEndian.PutUint32(header[34:38], uint32(entries))

	page := make([]byte, pageSize)
	binary.LittleEndian.PutUint16(page[2:4], uint16(entries))
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF) // next_page = -1
	copy(page[8:], entryBytes)

	return append(header, page...)
}

func TestWalkSingleLeaf(t *testing.T) {
	var entryBytes []byte
	names := []string{"|SYSTEM", "|TOPIC"}
	for i, name := range names {
		entryBytes = append(entryBytes, []byte(name)...)
		entryBytes = append(entryBytes, 0)
		off := make([]byte, 4)
		binary.LittleEndian.PutUint32(off, uint32(100*(i+1)))
		entryBytes = append(entryBytes, off...)
	}

	buf := buildSingleLevelTree(t, 1024, len(names), entryBytes)
	tree, err := Open("dir", buf)
	if err != nil {
		t.Fatal(err)
	}
	if int(tree.Header.TotalBTreeEntries) != len(names) {
		t.Fatalf("TotalBTreeEntries = %d, want %d", tree.Header.TotalBTreeEntries, len(names))
	}

	type dirEntry struct {
		name   string
		offset int32
	}
	var got []dirEntry
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		end := offset
		for end < len(page) && page[end] != 0 {
			end++
		}
		if end >= len(page) {
			return nil, 0, false
		}
		name := string(page[offset:end])
		valStart := end + 1
		if valStart+4 > len(page) {
			return nil, 0, false
		}
		off := int32(binary.LittleEndian.Uint32(page[valStart : valStart+4]))
		return dirEntry{name: name, offset: off}, valStart + 4, true
	}
	if err := Walk(tree, "dir", parse, func(e interface{}) {
		got = append(got, e.(dirEntry))
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].name != "|SYSTEM" || got[0].offset != 100 || got[1].name != "|TOPIC" || got[1].offset != 200 {
		t.Fatalf("got %+v", got)
	}
}

func TestOpenInvalidMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	if _, err := Open("dir", buf); err == nil {
		t.Fatal("expected InvalidMagic error")
	}
}
