package topic

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// ParagraphInfoBits is the 12-bit presence mask preceding ParagraphInfo's
// variable fields.
type ParagraphInfoBits uint16

const (
	bitUnknown ParagraphInfoBits = 1 << iota
	bitSpacingAbove
	bitSpacingBelow
	bitSpacingLines
	bitLeftIndent
	bitRightIndent
	bitFirstLineIndent
	bitUnused
	bitBorderInfo
	bitTabInfo
	bitRightAligned
	bitCenterAligned
)

// BorderInfo describes a paragraph's border, present when
// ParagraphInfoBits has bitBorderInfo set.
type BorderInfo struct {
	Box, Top, Left, Bottom, Right, Thick, Double, Unknown bool
	Width                                                 int16
}

// Tab is one tab stop; Type is only read when the stop's high bit is set.
type Tab struct {
	Position int16
	Type     int16
}

// ParagraphInfo is the variable-length formatting descriptor at the start
// of a TL_DISPLAY/TL_TABLE record's LinkData1.
type ParagraphInfo struct {
	TopicSize        int32
	TopicLength      uint16
	Bits             ParagraphInfoBits
	SpacingAbove     int16
	SpacingBelow     int16
	SpacingLines     int16
	LeftIndent       int16
	RightIndent      int16
	FirstLineIndent  int16
	Border           *BorderInfo
	Tabs             []Tab
}

// ParseParagraphInfo reads a ParagraphInfo from the start of data and
// returns it along with the offset of the first byte after it — the
// start of the interleaved formatting-command stream that
// internal/richtext consumes.
func ParseParagraphInfo(data []byte) (ParagraphInfo, int, error) {
	var pi ParagraphInfo
	if len(data) < 4 {
		return pi, 0, &werr.TruncatedRecord{Component: "paragraph-info", Offset: 0, Need: 4, Have: len(data)}
	}
	pi.TopicSize = int32(binary.LittleEndian.Uint32(data[0:4]))
	c := cursor.NewAt("paragraph-info", data, 4)

	topicLength, err := c.ScanWord()
	if err != nil {
		return pi, 0, err
	}
	pi.TopicLength = topicLength

	bits, err := c.ScanWord()
	if err != nil {
		return pi, 0, err
	}
	pi.Bits = ParagraphInfoBits(bits)

	if pi.Bits&bitUnknown != 0 {
		if _, err := c.ScanLong(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitSpacingAbove != 0 {
		if pi.SpacingAbove, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitSpacingBelow != 0 {
		if pi.SpacingBelow, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitSpacingLines != 0 {
		if pi.SpacingLines, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitLeftIndent != 0 {
		if pi.LeftIndent, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitRightIndent != 0 {
		if pi.RightIndent, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitFirstLineIndent != 0 {
		if pi.FirstLineIndent, err = c.ScanInt(); err != nil {
			return pi, 0, err
		}
	}
	if pi.Bits&bitBorderInfo != 0 {
		raw, err := c.Byte()
		if err != nil {
			return pi, 0, err
		}
		width, err := c.ScanInt()
		if err != nil {
			return pi, 0, err
		}
		pi.Border = &BorderInfo{
			Box: raw&0x01 != 0, Top: raw&0x02 != 0, Left: raw&0x04 != 0, Bottom: raw&0x08 != 0,
			Right: raw&0x10 != 0, Thick: raw&0x20 != 0, Double: raw&0x40 != 0, Unknown: raw&0x80 != 0,
			Width: width,
		}
	}
	if pi.Bits&bitTabInfo != 0 {
		n, err := c.ScanWord()
		if err != nil {
			return pi, 0, err
		}
		for i := 0; i < int(n); i++ {
			stop, err := c.ScanWord()
			if err != nil {
				break
			}
			var tabType uint16
			if stop&0x4000 != 0 {
				tabType, err = c.ScanWord()
				if err != nil {
					break
				}
			}
			pi.Tabs = append(pi.Tabs, Tab{Position: int16(stop & 0x3FFF), Type: int16(tabType)})
		}
	}
	return pi, c.Pos(), nil
}
