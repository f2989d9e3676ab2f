package keyword

import (
	"encoding/binary"
	"testing"
)

func treeHeader(pageSize uint16, structureTag string) []byte {
	header := make([]byte, 38)
	binary.LittleEndian.PutUint16(header[0:2], 0x293B)
	binary.LittleEndian.PutUint16(header[4:6], pageSize)
	copy(header[6:22], structureTag)
	binary.LittleEndian.PutUint16(header[30:32], 1) // TotalPages
	binary.LittleEndian.PutUint16(header[32:34], 1) // NLevels
	binary.LittleEndian.PutUint32(header[34:38], 1) // TotalBTreeEntries
	return header
}

func TestParseBTreeStandard(t *testing.T) {
	const pageSize = 64
	header := treeHeader(pageSize, "")
	page := make([]byte, pageSize)
	binary.LittleEndian.PutUint16(page[2:4], 1)
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF)
	off := 8
	copy(page[off:], "apple\x00")
	off += 6
	binary.LittleEndian.PutUint16(page[off:off+2], uint16(int16(3)))
	off += 2
	binary.LittleEndian.PutUint32(page[off:off+4], 40)

	raw := append(header, page...)
	bt, err := ParseBTree(raw)
	if err != nil {
		t.Fatal(err)
	}
	if bt.IsGID {
		t.Fatal("expected standard layout")
	}
	if len(bt.Entries) != 1 || bt.Entries[0].Keyword != "apple" || bt.Entries[0].Count != 3 || bt.Entries[0].KWDataOffset != 40 {
		t.Fatalf("entries = %+v", bt.Entries)
	}
}

func TestParseBTreeGID(t *testing.T) {
	const pageSize = 64
	header := treeHeader(pageSize, "!")
	page := make([]byte, pageSize)
	binary.LittleEndian.PutUint16(page[2:4], 1)
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF)
	off := 8
	copy(page[off:], "banana\x00")
	off += 7
	binary.LittleEndian.PutUint32(page[off:off+4], 16) // size = 16 -> 2 records
	off += 4
	binary.LittleEndian.PutUint32(page[off:off+4], 0)
	binary.LittleEndian.PutUint32(page[off+4:off+8], 101)
	binary.LittleEndian.PutUint32(page[off+8:off+12], 0)
	binary.LittleEndian.PutUint32(page[off+12:off+16], 202)

	raw := append(header, page...)
	bt, err := ParseBTree(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bt.IsGID {
		t.Fatal("expected GID layout")
	}
	if len(bt.GIDEntries) != 1 || bt.GIDEntries[0].Keyword != "banana" {
		t.Fatalf("entries = %+v", bt.GIDEntries)
	}
	if len(bt.GIDEntries[0].Records) != 2 || bt.GIDEntries[0].Records[1].TopicOffset != 202 {
		t.Fatalf("records = %+v", bt.GIDEntries[0].Records)
	}
}

func TestParseDataAndRange(t *testing.T) {
	var raw []byte
	for _, v := range []int32{10, 20, -1, 40} {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		raw = append(raw, b...)
	}
	d, err := ParseData(raw)
	if err != nil {
		t.Fatal(err)
	}
	got := d.Range(4, 2)
	if len(got) != 2 || got[0] != 20 || got[1] != -1 {
		t.Fatalf("Range = %v", got)
	}
	if !IsMacroReference(got[1]) {
		t.Error("expected -1 to be a macro reference")
	}
}

func TestParseMap(t *testing.T) {
	var raw []byte
	raw = append(raw, 2, 0) // n_entries = 2
	rec := make([]byte, 6)
	binary.LittleEndian.PutUint32(rec[0:4], 0)
	binary.LittleEndian.PutUint16(rec[4:6], 1)
	raw = append(raw, rec...)
	binary.LittleEndian.PutUint32(rec[0:4], 50)
	binary.LittleEndian.PutUint16(rec[4:6], 2)
	raw = append(raw, rec...)

	m, err := ParseMap(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Records) != 2 || m.Records[1].FirstKeywordIndex != 50 || m.Records[1].PageNumber != 2 {
		t.Fatalf("records = %+v", m.Records)
	}
}
