package auxtree

import (
	"encoding/binary"
	"testing"
)

func singleLeafTree(pageSize uint16, fill func(page []byte)) []byte {
	header := make([]byte, 38)
	binary.LittleEndian.PutUint16(header[0:2], 0x293B)
	binary.LittleEndian.PutUint16(header[4:6], pageSize)
	binary.LittleEndian.PutUint16(header[30:32], 1)
	binary.LittleEndian.PutUint16(header[32:34], 1)
	binary.LittleEndian.PutUint32(header[34:38], 1)

	page := make([]byte, pageSize)
	binary.LittleEndian.PutUint16(page[2:4], 1)
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF)
	fill(page)
	return append(header, page...)
}

func TestParseTitleTable(t *testing.T) {
	raw := singleLeafTree(64, func(page []byte) {
		binary.LittleEndian.PutUint32(page[8:12], 500)
		copy(page[12:], "Introduction\x00")
	})
	tbl, err := ParseTitleTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	title, ok := tbl.Title(500)
	if !ok || title != "Introduction" {
		t.Fatalf("Title(500) = %q, %v", title, ok)
	}
	off, ok := tbl.TopicOffset("Introduction")
	if !ok || off != 500 {
		t.Fatalf("TopicOffset = %d, %v", off, ok)
	}
}

func TestParseMacroTable(t *testing.T) {
	raw := singleLeafTree(64, func(page []byte) {
		binary.LittleEndian.PutUint32(page[8:12], 0xABCD)
		off := 12
		off += copy(page[off:], "JumpId(`file.hlp',`ctx')\x00")
		copy(page[off:], "See also\x00")
	})
	tbl, err := ParseMacroTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := tbl.ByHash(0xABCD)
	if !ok || m.DisplayTitle != "See also" {
		t.Fatalf("ByHash = %+v, %v", m, ok)
	}
}

func TestParseSourceTable(t *testing.T) {
	raw := singleLeafTree(64, func(page []byte) {
		binary.LittleEndian.PutUint32(page[8:12], 42)
		copy(page[12:], "chapter1.rtf\x00")
	})
	tbl, err := ParseSourceTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	name, ok := tbl.RTFSource(42)
	if !ok || name != "chapter1.rtf" {
		t.Fatalf("RTFSource = %q, %v", name, ok)
	}
}

func TestRawLeaves(t *testing.T) {
	raw := singleLeafTree(64, func(page []byte) {
		page[8] = 0xAA
	})
	leaves, err := RawLeaves("cntjump", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) != 1 || leaves[0].Entries != 1 {
		t.Fatalf("leaves = %+v", leaves)
	}
	if leaves[0].Page[8] != 0xAA {
		t.Errorf("raw page not preserved")
	}
}

func TestParseGroupFile(t *testing.T) {
	var raw []byte
	head := make([]byte, 12)
	binary.LittleEndian.PutUint32(head[0:4], grpMagic)
	binary.LittleEndian.PutUint32(head[4:8], 3) // bitmap size
	binary.LittleEndian.PutUint32(head[8:12], 10)
	raw = append(raw, head...)

	rng := make([]byte, 12)
	binary.LittleEndian.PutUint32(rng[0:4], 0)
	binary.LittleEndian.PutUint32(rng[4:8], 5)
	binary.LittleEndian.PutUint32(rng[8:12], 1)
	raw = append(raw, rng...)
	raw = append(raw, 0xDE, 0xAD, 0xBE)

	g, err := ParseGroupFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	gid, ok := g.GroupForTopic(3)
	if !ok || gid != 1 {
		t.Fatalf("GroupForTopic(3) = %d, %v", gid, ok)
	}
	if len(g.Bitmap) != 3 {
		t.Errorf("Bitmap = %v", g.Bitmap)
	}
}

func TestParseGroupFileBadMagic(t *testing.T) {
	raw := make([]byte, 12)
	g, err := ParseGroupFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Ranges) != 0 {
		t.Errorf("expected no ranges for bad magic, got %+v", g.Ranges)
	}
}

func TestParseWindowAssignments(t *testing.T) {
	raw := singleLeafTree(64, func(page []byte) {
		binary.LittleEndian.PutUint32(page[8:12], 500)
		binary.LittleEndian.PutUint32(page[12:16], 2)
	})
	w, err := ParseWindowAssignments(raw)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := w.WindowNumber(500)
	if !ok || n != 2 {
		t.Fatalf("WindowNumber(500) = %d, %v", n, ok)
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d", w.Len())
	}
}

func TestParseCatalog(t *testing.T) {
	header := make([]byte, catalogHeaderSize)
	binary.LittleEndian.PutUint16(header[0:2], 0x1111)
	binary.LittleEndian.PutUint16(header[2:4], 8)
	binary.LittleEndian.PutUint16(header[4:6], 4)
	binary.LittleEndian.PutUint32(header[6:10], 3)

	var raw []byte
	raw = append(raw, header...)
	for _, off := range []uint32{100, 200, 300} {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, off)
		raw = append(raw, b...)
	}

	cat, err := ParseCatalog(raw)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 3 {
		t.Fatalf("Len() = %d", cat.Len())
	}
	off, ok := cat.TopicOffset(2)
	if !ok || off != 200 {
		t.Fatalf("TopicOffset(2) = %d, %v", off, ok)
	}
	if _, ok := cat.TopicOffset(0); ok {
		t.Error("expected TopicOffset(0) to be out of range")
	}
}

func TestParseConfigMacros(t *testing.T) {
	var raw []byte
	raw = append(raw, []byte("ExecFile(`foo.exe')\x00")...)
	raw = append(raw, []byte("CreateButton(`~', `Close', `Exit()')\x00")...)
	macros := ParseConfigMacros(raw)
	if len(macros) != 2 || macros[0] != "ExecFile(`foo.exe')" {
		t.Fatalf("macros = %v", macros)
	}
}

func TestParseGlobalMacros(t *testing.T) {
	var raw []byte
	group := make([]byte, 4)
	binary.LittleEndian.PutUint32(group, 7)
	raw = append(raw, group...)

	entry := "Entry()\x00"
	exit := "Exit()\x00"
	stringOffset := 8 + len(entry)
	length := stringOffset + len(exit)

	rec := make([]byte, 8)
	binary.LittleEndian.PutUint32(rec[0:4], uint32(length))
	binary.LittleEndian.PutUint32(rec[4:8], uint32(stringOffset))
	raw = append(raw, rec...)
	raw = append(raw, []byte(entry)...)
	raw = append(raw, []byte(exit)...)

	g, err := ParseGlobalMacros(raw)
	if err != nil {
		t.Fatal(err)
	}
	if g.GroupNumber != 7 {
		t.Errorf("GroupNumber = %d", g.GroupNumber)
	}
	if len(g.Pairs) != 1 || g.Pairs[0].EntryMacro != "Entry()" || g.Pairs[0].ExitMacro != "Exit()" {
		t.Fatalf("Pairs = %+v", g.Pairs)
	}
}
