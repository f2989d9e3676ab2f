// Package sysrecord decodes the |SYSTEM internal file: the SystemHeader,
// the WinHelp-3.0 bare title, or (minor > 16) the typed SYSTEMREC sequence
// that carries title, copyright, secondary-window, keyword-index, and
// codec-selecting (LCID/CHARSET) records.
package sysrecord

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/charset"
	"github.com/go-winhlp/winhlp/internal/werr"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	magic      = 0x036C
	headerSize = 12
)

// CompressionMode selects how |TOPIC blocks are framed and decompressed,
// derived from SystemHeader.Flags.
type CompressionMode int

const (
	// ModeUncompressed is the WinHelp 3.0 scheme: 2048-byte blocks, no
	// LZ77 layer.
	ModeUncompressed CompressionMode = iota
	// ModeLZ774096 is flags=4: LZ77 topic blocks, 4096-byte blocks.
	ModeLZ774096
	// ModeLZ772048 is flags=8: LZ77 topic blocks, 2048-byte blocks.
	ModeLZ772048
)

// BlockSize returns the topic-block size implied by the mode.
func (m CompressionMode) BlockSize() int {
	switch m {
	case ModeLZ774096:
		return 4096
	case ModeLZ772048:
		return 2048
	default:
		return 2048
	}
}

// Header is the 12-byte SystemHeader.
type Header struct {
	Magic   uint16
	Minor   uint16
	Major   uint16
	GenDate int32
	Flags   uint16
}

// SecWindow is a secondary window definition (SYSTEMREC type 6); fields
// not present in Flags are left at their zero value.
type SecWindow struct {
	Flags   uint16
	Type    string
	Name    string
	Caption string
	X, Y    int16
	Width   int16
	Height  int16
	Maximize uint16
	RGB      [3]byte
	RGBNsr   [3]byte
}

// KeyIndex describes one keyword index triple (SYSTEMREC type 14).
type KeyIndex struct {
	BTreeName string
	MapName   string
	DataName  string
	Title     string
}

// DefFont is the default dialog font (SYSTEMREC type 12).
type DefFont struct {
	HeightInPoints uint16
	Charset        uint8
	FontName       string
}

// System is the fully decoded |SYSTEM file.
type System struct {
	Header     Header
	Title      string
	Copyright  string
	Macros     []string
	Citations  []string
	CntFile    string
	SecWindows []SecWindow
	KeyIndexes []KeyIndex
	DefFonts   []DefFont
	Groups     []string
	LCID       uint16
	Charset    uint8
	Encoding   encoding.Encoding
}

// CompressionMode derives the |TOPIC framing mode from Header.Flags, per
// the table documented alongside the topic decoder.
func (s *System) CompressionMode() CompressionMode {
	switch {
	case s.Header.Flags&8 != 0:
		return ModeLZ772048
	case s.Header.Flags&4 != 0:
		return ModeLZ774096
	default:
		return ModeUncompressed
	}
}

// Parse decodes a |SYSTEM file's payload (FILEHEADER already stripped).
func Parse(raw []byte) (*System, error) {
	if len(raw) < headerSize {
		return nil, &werr.TruncatedRecord{Component: "|SYSTEM", Offset: 0, Need: headerSize, Have: len(raw)}
	}
	var h Header
	h.Magic = binary.LittleEndian.Uint16(raw[0:2])
	h.Minor = binary.LittleEndian.Uint16(raw[2:4])
	h.Major = binary.LittleEndian.Uint16(raw[4:6])
	h.GenDate = int32(binary.LittleEndian.Uint32(raw[6:10]))
	h.Flags = binary.LittleEndian.Uint16(raw[10:12])
	if h.Magic != magic {
		return nil, &werr.InvalidMagic{Component: "|SYSTEM", Got: uint32(h.Magic), Want: magic}
	}

	s := &System{Header: h, Encoding: charmap.Windows1252}
	if h.Minor <= 16 {
		s.parseBareTitle(raw[headerSize:])
		return s, nil
	}
	s.parseRecords(raw[headerSize:])
	return s, nil
}

func (s *System) parseBareTitle(data []byte) {
	n := indexZero(data)
	if n < 0 {
		n = len(data)
	}
	s.Title = charset.Decode(s.Encoding, data[:n])
}

func (s *System) parseRecords(data []byte) {
	off := 0
	for off+4 <= len(data) {
		recType := binary.LittleEndian.Uint16(data[off : off+2])
		size := int(binary.LittleEndian.Uint16(data[off+2 : off+4]))
		off += 4
		if off+size > len(data) {
			size = len(data) - off
		}
		rec := data[off : off+size]
		off += size

		switch recType {
		case 1: // TITLE
			s.Title = s.decodeZ(rec)
		case 2: // COPYRIGHT
			s.Copyright = s.decodeZ(rec)
		case 4: // MACRO
			s.Macros = append(s.Macros, s.decodeZ(rec))
		case 6: // SECWINDOW
			s.SecWindows = append(s.SecWindows, parseSecWindow(rec))
		case 8: // CITATION
			s.Citations = append(s.Citations, s.decodeZ(rec))
		case 9: // LCID
			if len(rec) >= 10 {
				lcid := binary.LittleEndian.Uint16(rec[8:10])
				s.LCID = lcid
				s.Encoding = charset.ForLCID(lcid)
			}
		case 10: // CNT
			s.CntFile = s.decodeZ(rec)
		case 11: // CHARSET
			if len(rec) >= 2 {
				cs := rec[0]
				s.Charset = cs
				s.Encoding = charset.ForCharset(cs)
			}
		case 12: // DEFFONT
			s.DefFonts = append(s.DefFonts, parseDefFont(rec, s))
		case 13: // GROUPS
			s.Groups = append(s.Groups, s.decodeZ(rec))
		case 14: // KEYINDEX
			s.KeyIndexes = append(s.KeyIndexes, parseKeyIndex(rec))
		case 19: // DLLMAPS
			// Skipped, not stored: no component currently needs
			// 16/32-bit DLL name remapping.
		}
	}
}

func (s *System) decodeZ(data []byte) string {
	n := indexZero(data)
	if n < 0 {
		n = len(data)
	}
	return charset.Decode(s.Encoding, data[:n])
}

func parseSecWindow(data []byte) SecWindow {
	var w SecWindow
	off := 0
	if off+2 > len(data) {
		return w
	}
	w.Flags = binary.LittleEndian.Uint16(data[off : off+2])
	off += 2
	read := func(flag uint16, n int) []byte {
		if w.Flags&flag == 0 || off+n > len(data) {
			return nil
		}
		b := data[off : off+n]
		off += n
		return b
	}
	if b := read(0x01, 10); b != nil {
		w.Type = cString(b)
	}
	if b := read(0x02, 9); b != nil {
		w.Name = cString(b)
	}
	if b := read(0x04, 51); b != nil {
		w.Caption = cString(b)
	}
	if b := read(0x08, 2); b != nil {
		w.X = int16(binary.LittleEndian.Uint16(b))
	}
	if b := read(0x10, 2); b != nil {
		w.Y = int16(binary.LittleEndian.Uint16(b))
	}
	if b := read(0x20, 2); b != nil {
		w.Width = int16(binary.LittleEndian.Uint16(b))
	}
	if b := read(0x40, 2); b != nil {
		w.Height = int16(binary.LittleEndian.Uint16(b))
	}
	if b := read(0x80, 2); b != nil {
		w.Maximize = binary.LittleEndian.Uint16(b)
	}
	if b := read(0x100, 3); b != nil {
		copy(w.RGB[:], b)
	}
	read(0x200, 2) // unknown1, positional only
	if b := read(0x400, 3); b != nil {
		copy(w.RGBNsr[:], b)
	}
	read(0x800, 2) // unknown2, positional only
	return w
}

func parseKeyIndex(data []byte) KeyIndex {
	pad := func(b []byte, n int) []byte {
		if len(b) >= n {
			return b[:n]
		}
		out := make([]byte, n)
		copy(out, b)
		return out
	}
	field := func(start, n int) []byte {
		if start >= len(data) {
			return nil
		}
		end := start + n
		if end > len(data) {
			end = len(data)
		}
		return pad(data[start:end], n)
	}
	return KeyIndex{
		BTreeName: cString(field(0, 10)),
		MapName:   cString(field(10, 10)),
		DataName:  cString(field(20, 10)),
		Title:     cString(field(30, 80)),
	}
}

func parseDefFont(data []byte, s *System) DefFont {
	var f DefFont
	if len(data) >= 2 {
		f.HeightInPoints = binary.LittleEndian.Uint16(data[0:2])
	}
	if len(data) >= 3 {
		f.Charset = data[2]
	}
	if len(data) > 3 {
		f.FontName = s.decodeZ(data[3:])
	}
	return f
}

func cString(b []byte) string {
	n := indexZero(b)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
