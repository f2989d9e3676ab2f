// Package font parses the |FONT internal file: the face-name table, per-run
// font descriptors, and (HCRTF 4.0+) named character styles that a topic's
// rich-text formatting commands index into by ordinal.
package font

import (
	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

const headerSize = 16 // eight u16 fields

// Header is the |FONT file's lead-in: counts and offsets for each of its
// four variable-length sections.
type Header struct {
	NumFacenames      uint16
	NumDescriptors    uint16
	FacenamesOffset   uint16
	DescriptorsOffset uint16
	NumFormats        uint16
	FormatsOffset     uint16
	NumCharmaps       uint16
	CharmapsOffset    uint16
}

// Descriptor is one font run descriptor. Help files built with HCRTF up to
// 3.x store the 8-byte OLDFONT layout (no font_name string, an index into
// Facenames instead); 4.0+ stores the 39-byte NEWFONT layout, still
// indexing Facenames but carrying a separate point-size/weight pair. Both
// normalize to this one shape; IsNew reports which layout produced it.
type Descriptor struct {
	IsNew         bool
	Attributes    uint8  // OLDFONT only
	HalfPoints    uint8  // OLDFONT only: point size * 2
	FontFamily    uint8  // OLDFONT only
	FontNameIndex int16  // index into Table.Facenames
	Height        int32  // NEWFONT only: point size in twips
	Weight        int16  // NEWFONT only: 0-1000, 400=normal, 700=bold
	FgRGB         [3]byte
	BgRGB         [3]byte
}

// Style is one HCRTF 4.0+ named character style ([MACROS] "style" blocks in
// the help project), layering a font descriptor over an optional base
// style by ordinal.
type Style struct {
	StyleNum int16
	BasedOn  int16
	Font     Descriptor
	Name     string
}

// Table is a parsed |FONT file.
type Table struct {
	Header     Header
	Facenames  []string
	Descriptors []Descriptor
	Styles     []Style
	Charmaps   []string
}

// Parse reads a |FONT file's payload. useNewFormat selects the NEWFONT vs
// OLDFONT descriptor layout and should be the caller's
// |SYSTEM header's minor-version > 16 check (HC31 or later).
func Parse(payload []byte, useNewFormat bool) (*Table, error) {
	if len(payload) < headerSize {
		return nil, &werr.TruncatedRecord{Component: "font", Offset: 0, Need: headerSize, Have: len(payload)}
	}
	c := cursor.New("font", payload)
	var h Header
	h.NumFacenames, _ = c.U16()
	h.NumDescriptors, _ = c.U16()
	h.FacenamesOffset, _ = c.U16()
	h.DescriptorsOffset, _ = c.U16()
	h.NumFormats, _ = c.U16()
	h.FormatsOffset, _ = c.U16()
	h.NumCharmaps, _ = c.U16()
	h.CharmapsOffset, _ = c.U16()

	t := &Table{Header: h}
	t.Facenames = readStrings(payload, int(h.FacenamesOffset), int(h.NumFacenames))
	t.Descriptors = readDescriptors(payload, int(h.DescriptorsOffset), int(h.NumDescriptors), useNewFormat)
	if useNewFormat {
		t.Styles = readStyles(payload, int(h.FormatsOffset), int(h.NumFormats))
	}
	t.Charmaps = readStrings(payload, int(h.CharmapsOffset), int(h.NumCharmaps))
	return t, nil
}

func readStrings(payload []byte, offset, count int) []string {
	if offset <= 0 || offset >= len(payload) {
		return nil
	}
	c := cursor.NewAt("font-names", payload, offset)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := c.StringZ()
		if err != nil {
			break
		}
		out = append(out, string(s))
	}
	return out
}

const (
	oldFontSize = 8
	newFontSize = 39
)

func readDescriptors(payload []byte, offset, count int, useNewFormat bool) []Descriptor {
	if offset <= 0 || offset >= len(payload) {
		return nil
	}
	size := oldFontSize
	if useNewFormat {
		size = newFontSize
	}
	out := make([]Descriptor, 0, count)
	pos := offset
	for i := 0; i < count; i++ {
		if pos+size > len(payload) {
			break
		}
		rec := payload[pos : pos+size]
		if useNewFormat {
			out = append(out, parseNewFont(rec))
		} else {
			out = append(out, parseOldFont(rec))
		}
		pos += size
	}
	return out
}

func parseOldFont(rec []byte) Descriptor {
	return Descriptor{
		Attributes:    rec[0],
		HalfPoints:    rec[1],
		FontFamily:    rec[2],
		FontNameIndex: int16(uint16(rec[3]) | uint16(rec[4])<<8),
		FgRGB:         [3]byte{rec[5], rec[6], rec[7]},
	}
}

// parseNewFont decodes a 39-byte NEWFONT record: u8 unknown1, i16 font_name,
// 3 bytes fg_rgb, 3 bytes bg_rgb, 5 bytes unknown, i32 height, 12 bytes
// mostly-zero, i16 weight, 7 trailing bytes.
func parseNewFont(rec []byte) Descriptor {
	d := Descriptor{IsNew: true}
	d.FontNameIndex = int16(uint16(rec[1]) | uint16(rec[2])<<8)
	copy(d.FgRGB[:], rec[3:6])
	copy(d.BgRGB[:], rec[6:9])
	d.Height = int32(uint32(rec[14]) | uint32(rec[15])<<8 | uint32(rec[16])<<16 | uint32(rec[17])<<24)
	d.Weight = int16(uint16(rec[30]) | uint16(rec[31])<<8)
	return d
}

const newStyleSize = 146

func readStyles(payload []byte, offset, count int) []Style {
	if offset <= 0 || offset >= len(payload) {
		return nil
	}
	out := make([]Style, 0, count)
	pos := offset
	for i := 0; i < count; i++ {
		if pos+newStyleSize > len(payload) {
			break
		}
		rec := payload[pos : pos+newStyleSize]
		styleNum := int16(uint16(rec[0]) | uint16(rec[1])<<8)
		basedOn := int16(uint16(rec[2]) | uint16(rec[3])<<8)
		font := parseNewFont(rec[4:43])
		name := cString(rec[81:146])
		out = append(out, Style{StyleNum: styleNum, BasedOn: basedOn, Font: font, Name: name})
		pos += newStyleSize
	}
	return out
}

func cString(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// FaceName resolves a descriptor's FontNameIndex to its face name.
func (t *Table) FaceName(d Descriptor) (string, bool) {
	i := int(d.FontNameIndex)
	if i < 0 || i >= len(t.Facenames) {
		return "", false
	}
	return t.Facenames[i], true
}

// Descriptor returns the font descriptor a richtext.Span.Font index
// selects.
func (t *Table) Descriptor(index int16) (Descriptor, bool) {
	i := int(index)
	if i < 0 || i >= len(t.Descriptors) {
		return Descriptor{}, false
	}
	return t.Descriptors[i], true
}
