package phrase

import (
	"encoding/binary"
	"testing"
)

func TestParseV31Uncompressed(t *testing.T) {
	// 2 phrases: "hi" and "bye".
	var buf []byte
	put16 := func(v uint16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		buf = append(buf, b...)
	}
	put16(2)      // phrase_count
	put16(0x0100) // magic

	// offsets table: 3 entries (count+1), relative to the start of the
	// table itself, so the phrase data begins at tableSize (6 for before31).
	tableSize := 3 * 2
	put16(uint16(tableSize + 0)) // phrase 0 start
	put16(uint16(tableSize + 2)) // phrase 0 end / phrase 1 start
	put16(uint16(tableSize + 5)) // phrase 1 end

	buf = append(buf, []byte("hibye")...)

	table, err := ParseV31(buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d, want 2", table.Count())
	}
	p0, ok := table.Lookup(0)
	if !ok || string(p0) != "hi" {
		t.Errorf("phrase 0 = %q, ok=%v", p0, ok)
	}
	p1, ok := table.Lookup(1)
	if !ok || string(p1) != "bye" {
		t.Errorf("phrase 1 = %q, ok=%v", p1, ok)
	}
}

func TestParseV31MSDEVSentinel(t *testing.T) {
	var buf []byte
	put16 := func(v uint16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		buf = append(buf, b...)
	}
	put16(0x0800) // sentinel
	put16(0)      // real count: zero phrases
	put16(0x0100) // magic

	table, err := ParseV31(buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 0 {
		t.Errorf("Count = %d, want 0", table.Count())
	}
}

func TestParseV31BadMagic(t *testing.T) {
	buf := []byte{1, 0, 0xFF, 0xFF, 0, 0}
	if _, err := ParseV31(buf, true); err == nil {
		t.Fatal("expected InvalidMagic")
	}
}

func TestParseIndexHeader(t *testing.T) {
	buf := make([]byte, indexHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], 0x4A01)
	binary.LittleEndian.PutUint32(buf[4:8], 3) // entries
	binary.LittleEndian.PutUint16(buf[24:26], 4) // bits=4, unknown=0
	h, err := ParseIndexHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Entries != 3 || h.Bits != 4 {
		t.Errorf("h = %+v", h)
	}
}

func TestBitReaderUnpacksDeltas(t *testing.T) {
	// 3 entries of 4 bits each: 0, 2, 5 -> packed low-nibble-first.
	packed := []byte{0x20, 0x05}
	br := &bitReader{data: packed}
	var got []uint32
	for i := 0; i < 3; i++ {
		v, ok := br.read(4)
		if !ok {
			t.Fatal("unexpected EOF")
		}
		got = append(got, v)
	}
	want := []uint32{0, 2, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
