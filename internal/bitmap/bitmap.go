// Package bitmap decodes |bmN internal files: the images, screen-capture
// shots, and segmented hypergraphics (SHG/MRB) referenced by a topic's
// embedded-picture formatting commands. The on-disk picture-type and
// compression-selector fields are not fully documented (spec's open
// question); this package retains the raw header and payload bytes
// alongside whatever structure it can extract, rather than guessing at an
// undocumented compression scheme.
package bitmap

import (
	"encoding/binary"
	"fmt"

	"github.com/go-winhlp/winhlp/internal/context"
	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

const headerSize = 44 // ten u32 fields plus two u16 fields (planes, bit_count)

// Header is a |bmN file's uncompressed lead-in.
type Header struct {
	XPelsPerMeter, YPelsPerMeter uint32
	Planes, BitCount             uint16
	Width, Height                uint32
	ColorsUsed, ColorsImportant  uint32
	DataSize                     uint32
	HotspotSize                  uint32
	PictureOffset                uint32
	HotspotOffset                uint32
}

// Hotspot is one interactive region over a bitmap (helpdeco.h HOTSPOT):
// a pixel rectangle plus the context hash it jumps to.
type Hotspot struct {
	ID0, ID1, ID2 uint8
	X, Y          uint16
	Width, Height uint16
	HashValue     uint32
}

// ContextName resolves the hotspot's hash back to a context name, when
// the hash decodes to one (see internal/context.ReverseHash).
func (h Hotspot) ContextName() (string, bool) {
	if h.HashValue == 0 {
		return "", false
	}
	return context.ReverseHash(h.HashValue)
}

// Format classifies a picture's container, following helpdeco's bmpext[]
// table: a plain bitmap, a Windows metafile, or segmented hypergraphics
// (a metafile, or a bitmap of at most 8 bits per pixel, with an attached
// hotspot table). "mrb" (multi-resolution bitmap) is reported for a
// hotspot-carrying picture that is not a metafile and has more than 8 bits
// per pixel. A payload without a metafile signature and without hotspots
// is reported as "bmp"; its bytes are not checked further.
type Format string

const (
	FormatBMP Format = "bmp"
	FormatWMF Format = "wmf"
	FormatEMF Format = "emf"
	FormatSHG Format = "shg"
	FormatMRB Format = "mrb"
)

// Picture is one parsed |bmN file.
type Picture struct {
	Header   Header
	Data     []byte // raw picture payload at Header.PictureOffset, as stored
	Hotspots []Hotspot
	Format   Format
}

// Parse reads a |bmN file's payload.
func Parse(payload []byte) (*Picture, error) {
	if len(payload) < headerSize {
		return nil, &werr.TruncatedRecord{Component: "bitmap", Offset: 0, Need: headerSize, Have: len(payload)}
	}
	c := cursor.New("bitmap", payload)
	var h Header
	h.XPelsPerMeter, _ = c.U32()
	h.YPelsPerMeter, _ = c.U32()
	h.Planes, _ = c.U16()
	h.BitCount, _ = c.U16()
	h.Width, _ = c.U32()
	h.Height, _ = c.U32()
	h.ColorsUsed, _ = c.U32()
	h.ColorsImportant, _ = c.U32()
	h.DataSize, _ = c.U32()
	h.HotspotSize, _ = c.U32()
	h.PictureOffset, _ = c.U32()
	h.HotspotOffset, _ = c.U32()

	p := &Picture{Header: h}

	if h.PictureOffset > 0 && h.DataSize > 0 {
		start := int(h.PictureOffset)
		end := start + int(h.DataSize)
		if start < len(payload) {
			if end > len(payload) {
				end = len(payload)
			}
			p.Data = payload[start:end]
		}
	}

	if h.HotspotOffset > 0 && h.HotspotSize > 0 {
		p.Hotspots = parseHotspots(payload, int(h.HotspotOffset), int(h.HotspotSize))
	}

	p.Format = classify(h, p.Data, len(p.Hotspots) > 0)
	return p, nil
}

const hotspotRecordSize = 15

func parseHotspots(payload []byte, offset, size int) []Hotspot {
	if offset+size > len(payload) || offset < 0 || size < 0 {
		return nil
	}
	data := payload[offset : offset+size]
	var out []Hotspot
	c := cursor.New("bitmap-hotspot", data)
	for c.Len() >= hotspotRecordSize {
		id0, _ := c.U8()
		id1, _ := c.U8()
		id2, _ := c.U8()
		x, _ := c.U16()
		y, _ := c.U16()
		width, _ := c.U16()
		height, _ := c.U16()
		hash, _ := c.U32()
		out = append(out, Hotspot{ID0: id0, ID1: id1, ID2: id2, X: x, Y: y, Width: width, Height: height, HashValue: hash})
	}
	return out
}

var (
	wmfSignature = [4]byte{0x01, 0x00, 0x09, 0x00}
	emfSignature = [4]byte{0xD7, 0xCD, 0xC6, 0x9A}
)

func classify(h Header, data []byte, hasHotspots bool) Format {
	if len(data) >= 4 {
		var sig [4]byte
		copy(sig[:], data[:4])
		switch sig {
		case wmfSignature:
			if hasHotspots {
				return FormatSHG
			}
			return FormatWMF
		case emfSignature:
			if hasHotspots {
				return FormatSHG
			}
			return FormatEMF
		}
	}
	if hasHotspots && h.BitCount <= 8 {
		return FormatSHG
	}
	if hasHotspots {
		return FormatMRB
	}
	return FormatBMP
}

// ToBMP synthesises a standard Windows BITMAPFILEHEADER + BITMAPINFOHEADER
// prefix over the picture's raw pixel payload, producing a valid .BMP byte
// stream. It only makes sense for Format BMP or SHG pictures (a plain or
// hotspot-carrying bitmap); metafiles are returned as an error since they
// have no BITMAPINFOHEADER to synthesise.
func (p *Picture) ToBMP() ([]byte, error) {
	if p.Format != FormatBMP && p.Format != FormatSHG {
		return nil, fmt.Errorf("bitmap: cannot synthesise BMP for format %q", p.Format)
	}
	if len(p.Data) >= 4 {
		var sig [4]byte
		copy(sig[:], p.Data[:4])
		if sig == wmfSignature || sig == emfSignature {
			return nil, fmt.Errorf("bitmap: cannot synthesise BMP for a metafile payload")
		}
	}
	h := p.Header
	colors := h.ColorsUsed
	if colors == 0 && h.BitCount <= 8 {
		colors = 1 << h.BitCount
	}
	paletteSize := int(colors) * 4

	const fileHeaderSize = 14
	const infoHeaderSize = 40
	offBits := fileHeaderSize + infoHeaderSize + paletteSize

	out := make([]byte, 0, offBits+len(p.Data))

	fileHeader := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint16(fileHeader[0:2], 0x4D42) // "BM"
	binary.LittleEndian.PutUint32(fileHeader[2:6], uint32(offBits+len(p.Data)))
	binary.LittleEndian.PutUint32(fileHeader[10:14], uint32(offBits))
	out = append(out, fileHeader...)

	infoHeader := make([]byte, infoHeaderSize)
	binary.LittleEndian.PutUint32(infoHeader[0:4], infoHeaderSize)
	binary.LittleEndian.PutUint32(infoHeader[4:8], h.Width)
	binary.LittleEndian.PutUint32(infoHeader[8:12], h.Height)
	binary.LittleEndian.PutUint16(infoHeader[12:14], h.Planes)
	binary.LittleEndian.PutUint16(infoHeader[14:16], h.BitCount)
	binary.LittleEndian.PutUint32(infoHeader[20:24], uint32(len(p.Data)))
	xppm := h.XPelsPerMeter
	if xppm == 0 {
		xppm = 2835 // 72 DPI
	}
	yppm := h.YPelsPerMeter
	if yppm == 0 {
		yppm = 2835
	}
	binary.LittleEndian.PutUint32(infoHeader[24:28], xppm)
	binary.LittleEndian.PutUint32(infoHeader[28:32], yppm)
	binary.LittleEndian.PutUint32(infoHeader[32:36], colors)
	binary.LittleEndian.PutUint32(infoHeader[36:40], h.ColorsImportant)
	out = append(out, infoHeader...)

	if paletteSize > 0 {
		if len(p.Data) >= paletteSize {
			out = append(out, p.Data[:paletteSize]...)
			out = append(out, p.Data[paletteSize:]...)
		} else {
			out = append(out, make([]byte, paletteSize)...)
		}
	} else {
		out = append(out, p.Data...)
	}
	return out, nil
}
