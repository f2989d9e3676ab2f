// Package phrase loads the phrase-substitution tables used by topic-block
// decompression: the v3.1 |Phrases file (one LZ77-compressed blob plus an
// offset table) and the v4.0 "Hall" pair, |PhrIndex + |PhrImage (a
// bit-packed offset index plus a separately compressed phrase blob).
package phrase

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/lzcodec"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// Table resolves a phrase index to its raw (not yet text-decoded) bytes,
// matching lzcodec.PhraseLookup so it can be passed straight to
// DecodePhraseStream / DecodeHallStream.
type Table struct {
	phrases [][]byte
}

// Lookup implements lzcodec.PhraseLookup.
func (t *Table) Lookup(i int) ([]byte, bool) {
	if t == nil || i < 0 || i >= len(t.phrases) {
		return nil, false
	}
	return t.phrases[i], true
}

// Count returns the number of phrases in the table.
func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return len(t.phrases)
}

const phraseMagic = 0x0100

// ParseV31 decodes a |Phrases file's payload (FILEHEADER already stripped).
// before31 selects the WinHelp-3.0 uncompressed layout versus the
// WinHelp-3.1+ layout, whose phrase data is LZ77 compressed (method 2) and
// is preceded by a decompressed-size DWORD.
func ParseV31(raw []byte, before31 bool) (*Table, error) {
	if len(raw) < 6 {
		return nil, &werr.TruncatedRecord{Component: "|Phrases", Offset: 0, Need: 6, Have: len(raw)}
	}
	off := 0
	count := binary.LittleEndian.Uint16(raw[off : off+2])
	off += 2

	// MSDEV VC4.0 variant: a sentinel count of 0x0800 is followed by the
	// real count.
	if count == 0x0800 {
		if off+2 > len(raw) {
			return nil, &werr.TruncatedRecord{Component: "|Phrases", Offset: off, Need: 2, Have: len(raw) - off}
		}
		count = binary.LittleEndian.Uint16(raw[off : off+2])
		off += 2
	}

	if off+2 > len(raw) {
		return nil, &werr.TruncatedRecord{Component: "|Phrases", Offset: off, Need: 2, Have: len(raw) - off}
	}
	magic := binary.LittleEndian.Uint16(raw[off : off+2])
	off += 2
	if magic != phraseMagic {
		return nil, &werr.InvalidMagic{Component: "|Phrases", Got: uint32(magic), Want: phraseMagic}
	}
	if count == 0 {
		return &Table{}, nil
	}

	if !before31 {
		// decompressed-size DWORD, unused here: DecompressLZ77 derives the
		// output length from its own input rather than a stated size.
		if off+4 > len(raw) {
			return nil, &werr.TruncatedRecord{Component: "|Phrases", Offset: off, Need: 4, Have: len(raw) - off}
		}
		off += 4
	}

	offsetsBase := off
	offsets := make([]int, count+1)
	for i := 0; i <= int(count); i++ {
		if off+2 > len(raw) {
			return nil, &werr.TruncatedRecord{Component: "|Phrases", Offset: off, Need: 2, Have: len(raw) - off}
		}
		offsets[i] = int(binary.LittleEndian.Uint16(raw[off : off+2]))
		off += 2
	}
	dataStart := off
	// Offsets are stored relative to the position right after the
	// count/magic fields, not the start of the phrase data; normalise here.
	// For the v3.1+ layout that reference point sits 4 bytes before
	// offsetsBase (the decompressed-size DWORD read above), so the
	// normalising base is the table size plus those 4 bytes.
	base := dataStart - offsetsBase
	if !before31 {
		base += 4
	}
	for i := range offsets {
		offsets[i] -= base
	}

	var phraseData []byte
	if before31 {
		phraseData = raw[dataStart:]
	} else {
		decompressed := lzcodec.DecompressLZ77(raw[dataStart:])
		phraseData = decompressed
	}

	phrases := make([][]byte, 0, count)
	for i := 0; i < int(count); i++ {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end > len(phraseData) || start >= end {
			phrases = append(phrases, nil)
			continue
		}
		phrases = append(phrases, phraseData[start:end])
	}
	return &Table{phrases: phrases}, nil
}

// IndexHeader is the 30-byte PHRINDEXHDR preceding |PhrIndex's bit-packed
// offset table.
type IndexHeader struct {
	Always4A01             int32
	Entries                int32
	CompressedSize         int32
	PhrImageSize           int32
	PhrImageCompressedSize int32
	Always0                int32
	Bits                   uint8 // width, in bits, of each packed offset
	Unknown                uint16
	Always4A00             uint16
}

const indexHeaderSize = 30

// ParseIndexHeader decodes the PHRINDEXHDR at the start of a |PhrIndex
// file's payload.
func ParseIndexHeader(raw []byte) (IndexHeader, error) {
	var h IndexHeader
	if len(raw) < indexHeaderSize {
		return h, &werr.TruncatedRecord{Component: "|PhrIndex", Offset: 0, Need: indexHeaderSize, Have: len(raw)}
	}
	h.Always4A01 = int32(binary.LittleEndian.Uint32(raw[0:4]))
	h.Entries = int32(binary.LittleEndian.Uint32(raw[4:8]))
	h.CompressedSize = int32(binary.LittleEndian.Uint32(raw[8:12]))
	h.PhrImageSize = int32(binary.LittleEndian.Uint32(raw[12:16]))
	h.PhrImageCompressedSize = int32(binary.LittleEndian.Uint32(raw[16:20]))
	h.Always0 = int32(binary.LittleEndian.Uint32(raw[20:24]))
	combined := binary.LittleEndian.Uint16(raw[24:26])
	h.Bits = uint8(combined & 0x0F)
	h.Unknown = (combined >> 4) & 0x0FFF
	h.Always4A00 = binary.LittleEndian.Uint16(raw[26:28])
	return h, nil
}

// bitReader reads consecutive fixed-width fields LSB-first from a byte
// slice, as used by |PhrIndex's packed offset table.
type bitReader struct {
	data []byte
	pos  int // bit position
}

func (r *bitReader) read(bits uint8) (uint32, bool) {
	var v uint32
	for i := uint8(0); i < bits; i++ {
		byteIdx := r.pos / 8
		if byteIdx >= len(r.data) {
			return 0, false
		}
		bitIdx := uint(r.pos % 8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v |= uint32(bit) << i
		r.pos++
	}
	return v, true
}

// ParseV40 decodes the v4.0 "Hall" phrase pair: |PhrIndex supplies a
// bit-packed table of Entries+1 phrase offsets (each Bits wide, delta
// from the previous entry, per the compiler's packed-index convention),
// and |PhrImage supplies the phrase bytes addressed by those offsets,
// LZ77-decompressed (method 2) when PhrImageCompressedSize != PhrImageSize.
func ParseV40(phrIndexRaw, phrImageRaw []byte) (*Table, error) {
	h, err := ParseIndexHeader(phrIndexRaw)
	if err != nil {
		return nil, err
	}
	if h.Entries <= 0 {
		return &Table{}, nil
	}

	br := &bitReader{data: phrIndexRaw[indexHeaderSize:]}
	offsets := make([]int, h.Entries+1)
	var running uint32
	for i := 0; i <= int(h.Entries); i++ {
		delta, ok := br.read(h.Bits)
		if !ok {
			return nil, &werr.TruncatedRecord{Component: "|PhrIndex", Offset: br.pos / 8, Need: 1, Have: 0}
		}
		running += delta
		offsets[i] = int(running)
	}

	var phraseData []byte
	if h.PhrImageCompressedSize == h.PhrImageSize {
		phraseData = phrImageRaw
	} else {
		phraseData = lzcodec.DecompressLZ77(phrImageRaw)
	}
	if int32(len(phraseData)) > h.PhrImageSize && h.PhrImageSize > 0 {
		phraseData = phraseData[:h.PhrImageSize]
	}

	phrases := make([][]byte, 0, h.Entries)
	for i := 0; i < int(h.Entries); i++ {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end > len(phraseData) || start >= end {
			phrases = append(phrases, nil)
			continue
		}
		phrases = append(phrases, phraseData[start:end])
	}
	return &Table{phrases: phrases}, nil
}
