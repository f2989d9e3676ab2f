// Package richtext reassembles a topic's displayable content from the two
// interleaved streams a TOPICLINK carries: LinkData2's NUL-terminated text
// runs and LinkData1's formatting-command stream. The two are consumed in
// lockstep — one text run, then one command — which is what makes this
// the hardest part of the decoder: neither stream alone describes the
// content, and losing sync between them silently scrambles the output.
package richtext

import (
	"encoding/binary"
	"fmt"

	"github.com/go-winhlp/winhlp/internal/cursor"
)

// HotspotKind classifies what a hotspot activates.
type HotspotKind int

const (
	HotspotJump HotspotKind = iota
	HotspotPopup
	HotspotMacro
	HotspotExternalJump
	HotspotExternalPopup
)

// JumpAddressing distinguishes the two ways a jump command names its
// target: a direct TOPICOFFSET (HC30 commands 0xE0/0xE1) versus a
// context-name hash that must be reverse-looked-up (HC31 commands
// 0xE2/0xE3/0xE6/0xE7).
type JumpAddressing int

const (
	AddressByTopicOffset JumpAddressing = iota
	AddressByContextHash
)

// Hotspot is one interactive region of a topic's reassembled text.
type Hotspot struct {
	SpanIndex   int
	Kind        HotspotKind
	Addressing  JumpAddressing
	Value       uint32 // TOPICOFFSET or context hash, per Addressing
	Macro       string // set when Kind == HotspotMacro
	WindowName  string // set for external jumps with an explicit window
	ExternalRef string // set for external jumps: target help file name
	NoFontChange bool
	Start, End  int // byte offsets into the reassembled text
}

// Span is a run of text sharing one set of formatting attributes.
type Span struct {
	Text          string
	Font          int16
	HasFont       bool
	Hyperlink     bool
	EmbeddedImage string // e.g. "bitmap:center:<ref>", set by 0x86-0x88
}

// Decode converts bytes to text in the file's selected codec.
type Decode func([]byte) string

// Reassemble walks linkData1 (formatting commands) and linkData2 (raw text,
// already phrase-decompressed) in lockstep, producing the spans and
// hotspots that make up one topic's displayable content.
func Reassemble(linkData1, linkData2 []byte, decode Decode) ([]Span, []Hotspot) {
	var spans []Span
	var hotspots []Hotspot

	var textBuf []byte
	var font int16
	var hasFont bool
	var embeddedImage string
	hotspotActive := false
	var hotspotStart int
	var pendingHotspot Hotspot
	totalTextLen := 0

	finishSpan := func() {
		if len(textBuf) == 0 && !hotspotActive {
			return
		}
		span := Span{
			Text:          decode(textBuf),
			Font:          font,
			HasFont:       hasFont,
			Hyperlink:     hotspotActive,
			EmbeddedImage: embeddedImage,
		}
		spans = append(spans, span)
		// TOPICOFFSET arithmetic counts pre-decode bytes, not the
		// charset-decoded (and possibly UTF-8-widened) span text.
		totalTextLen += len(textBuf)
		if hotspotActive {
			pendingHotspot.SpanIndex = len(spans) - 1
			pendingHotspot.Start = hotspotStart
			pendingHotspot.End = totalTextLen
		}
		textBuf = textBuf[:0]
		embeddedImage = ""
	}

	p1, p2 := 0, 0
	for p2 < len(linkData2) && p1 < len(linkData1) {
		start := p2
		for p2 < len(linkData2) && linkData2[p2] != 0 {
			p2++
		}
		textBuf = append(textBuf, linkData2[start:p2]...)
		if p2 < len(linkData2) {
			p2++ // skip NUL
		}

		cmd := linkData1[p1]
		p1++

		switch {
		case cmd == 0xFF || cmd == 0x00:
			p1 = len(linkData1)

		case cmd == 0x80: // font change
			if p1+2 <= len(linkData1) {
				finishSpan()
				font = int16(binary.LittleEndian.Uint16(linkData1[p1 : p1+2]))
				hasFont = true
				p1 += 2
			}

		case cmd == 0x81: // line break
			finishSpan()
			textBuf = append(textBuf, '\n')

		case cmd == 0x82: // paragraph break
			finishSpan()
			textBuf = append(textBuf, '\n', '\n')

		case cmd == 0x83: // tab
			finishSpan()
			textBuf = append(textBuf, '\t')

		case cmd == 0x89: // end of hotspot
			finishSpan()
			if hotspotActive {
				hotspots = append(hotspots, pendingHotspot)
			}
			hotspotActive = false

		case cmd == 0x8B: // non-break space
			finishSpan()
			textBuf = append(textBuf, ' ')

		case cmd == 0x8C: // non-break hyphen
			finishSpan()
			textBuf = append(textBuf, '-')

		case cmd == 0x86 || cmd == 0x87 || cmd == 0x88: // embedded picture/window
			p1 = parseEmbedded(cmd, linkData1, p1, &embeddedImage, finishSpan)

		case cmd == 0xE0 || cmd == 0xE1 || cmd == 0xE2 || cmd == 0xE3 || cmd == 0xE6 || cmd == 0xE7:
			if p1+4 <= len(linkData1) {
				finishSpan()
				value := binary.LittleEndian.Uint32(linkData1[p1 : p1+4])
				p1 += 4
				isPopup := cmd == 0xE0 || cmd == 0xE2 || cmd == 0xE6
				addressing := AddressByTopicOffset
				if cmd == 0xE2 || cmd == 0xE3 || cmd == 0xE6 || cmd == 0xE7 {
					addressing = AddressByContextHash
				}
				kind := HotspotJump
				if isPopup {
					kind = HotspotPopup
				}
				pendingHotspot = Hotspot{
					Kind:         kind,
					Addressing:   addressing,
					Value:        value,
					NoFontChange: cmd == 0xE6 || cmd == 0xE7,
				}
				hotspotActive = true
				hotspotStart = totalTextLen
			} else {
				p1 = len(linkData1)
			}

		case cmd == 0xC8 || cmd == 0xCC: // macro hotspot
			if p1+2 <= len(linkData1) {
				n := int(int16(binary.LittleEndian.Uint16(linkData1[p1 : p1+2])))
				p1 += 2
				if n >= 0 && p1+n <= len(linkData1) {
					finishSpan()
					pendingHotspot = Hotspot{Kind: HotspotMacro, Macro: decode(linkData1[p1 : p1+n])}
					hotspotActive = true
					hotspotStart = totalTextLen
					p1 += n
				} else {
					p1 = len(linkData1)
				}
			}

		case cmd == 0xEA || cmd == 0xEB || cmd == 0xEE || cmd == 0xEF: // external jump
			p1 = parseExternalJump(cmd, linkData1, p1, decode, &pendingHotspot, &hotspotActive, &hotspotStart, totalTextLen, finishSpan)

		case cmd == 0x20 || cmd == 0x21: // vfld/dtype (MVB-specific), positional only
			n := 4
			if cmd == 0x21 {
				n = 2
			}
			if p1+n <= len(linkData1) {
				p1 += n
			} else {
				p1 = len(linkData1)
			}

		default:
			// Unrecognised command byte: stop consuming LinkData1 so the
			// remaining text still gets appended as a final span, rather
			// than losing sync silently.
			p1 = len(linkData1)
		}
	}
	if p2 < len(linkData2) {
		textBuf = append(textBuf, linkData2[p2:]...)
	}
	finishSpan()
	if hotspotActive {
		hotspots = append(hotspots, pendingHotspot)
	}
	return spans, hotspots
}

func parseEmbedded(cmd byte, data []byte, p int, embeddedImage *string, finishSpan func()) int {
	if p+1 >= len(data) {
		return len(data)
	}
	p++ // skip x3 (unused positioning byte)
	x1 := data[p]
	p++

	alignment := map[byte]string{0x86: "center", 0x87: "left", 0x88: "right"}[cmd]
	finishSpan()
	kind := "bitmap"
	if x1 == 0x05 {
		kind = "window"
	}

	c := cursor.NewAt("richtext-embedded", data, p)
	size, err := c.ScanLong()
	if err != nil {
		return len(data)
	}
	p = c.Pos()

	if x1 == 0x22 { // HC31: hotspot count precedes the bitmap reference
		c = cursor.NewAt("richtext-embedded", data, p)
		if _, err := c.ScanWord(); err == nil {
			p = c.Pos()
		}
	}

	var ref uint16
	c = cursor.NewAt("richtext-embedded", data, p)
	if v, err := c.ScanWord(); err == nil {
		ref = v
		p = c.Pos()
	}
	*embeddedImage = fmt.Sprintf("%s:%s:%d", kind, alignment, ref)
	_ = size
	return p
}

func parseExternalJump(cmd byte, data []byte, p int, decode Decode, pending *Hotspot, active *bool, start *int, total int, finishSpan func()) int {
	if p+2 > len(data) {
		return len(data)
	}
	dataLength := int(int16(binary.LittleEndian.Uint16(data[p : p+2])))
	p += 2
	if dataLength < 0 || p+dataLength > len(data) {
		return len(data)
	}
	end := p + dataLength
	if p >= len(data) {
		return end
	}
	typeField := data[p]
	p++
	var topicOffset uint32
	if p+4 <= end {
		topicOffset = binary.LittleEndian.Uint32(data[p : p+4])
		p += 4
	}
	h := Hotspot{Kind: HotspotExternalJump, Addressing: AddressByTopicOffset, Value: topicOffset, NoFontChange: cmd == 0xEE || cmd == 0xEF}
	if cmd == 0xEA || cmd == 0xEE {
		h.Kind = HotspotExternalPopup
	}
	switch typeField {
	case 0x01:
		if p < end {
			p++ // window_number, not separately surfaced
		}
	case 0x04, 0x06:
		extStart := p
		for p < end && data[p] != 0 {
			p++
		}
		h.ExternalRef = decode(data[extStart:p])
		if p < end {
			p++
		}
		if typeField == 0x06 {
			nameStart := p
			for p < end && data[p] != 0 {
				p++
			}
			h.WindowName = decode(data[nameStart:p])
		}
	}
	finishSpan()
	*pending = h
	*active = true
	*start = total
	return end
}
