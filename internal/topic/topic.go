// Package topic walks the |TOPIC internal file: fixed-size topic blocks,
// each holding a chain of TOPICLINK records whose two payloads (LinkData1
// formatting commands, LinkData2 text) are reassembled by
// internal/richtext.
package topic

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/lzcodec"
	"github.com/go-winhlp/winhlp/internal/phrase"
	"github.com/go-winhlp/winhlp/internal/werr"
)

const (
	blockHeaderSize = 12
	linkHeaderSize  = 21
)

// RecordType identifies what a TOPICLINK's payloads contain.
type RecordType byte

const (
	RecordDisplay30 RecordType = 0x01 // displayable info, WinHelp 3.0
	RecordTopicHdr  RecordType = 0x02 // topic header
	RecordDisplay   RecordType = 0x20 // displayable info, WinHelp 3.1+
	RecordTable     RecordType = 0x23 // table
)

// Link is one TOPICLINK's 21-byte descriptor.
type Link struct {
	BlockSize  uint32
	DataLen2   uint32
	PrevBlock  uint32
	NextBlock  uint32
	DataLen1   uint32
	RecordType RecordType
}

// Header31 is the 28-byte TOPICHEADER used from WinHelp 3.1 onward.
type Header31 struct {
	BlockSize     int32
	BrowseBack    int32
	BrowseForward int32
	TopicNum      int32
	NonScroll     int32
	Scroll        int32
	NextTopic     int32
}

// Header30 is the 12-byte TOPICHEADER30 used by WinHelp 3.0.
type Header30 struct {
	BlockSize    int32
	PrevTopicNum int16
	Unused1      int16
	NextTopicNum int16
	Unused2      int16
}

// ParseHeader31 decodes a 28-byte TOPICHEADER from the start of data.
func ParseHeader31(data []byte) (Header31, error) {
	var h Header31
	if len(data) < 28 {
		return h, &werr.TruncatedRecord{Component: "topic-header", Offset: 0, Need: 28, Have: len(data)}
	}
	h.BlockSize = int32(binary.LittleEndian.Uint32(data[0:4]))
	h.BrowseBack = int32(binary.LittleEndian.Uint32(data[4:8]))
	h.BrowseForward = int32(binary.LittleEndian.Uint32(data[8:12]))
	h.TopicNum = int32(binary.LittleEndian.Uint32(data[12:16]))
	h.NonScroll = int32(binary.LittleEndian.Uint32(data[16:20]))
	h.Scroll = int32(binary.LittleEndian.Uint32(data[20:24]))
	h.NextTopic = int32(binary.LittleEndian.Uint32(data[24:28]))
	return h, nil
}

// ParseHeader30 decodes a 12-byte TOPICHEADER30 from the start of data.
func ParseHeader30(data []byte) (Header30, error) {
	var h Header30
	if len(data) < 12 {
		return h, &werr.TruncatedRecord{Component: "topic-header30", Offset: 0, Need: 12, Have: len(data)}
	}
	h.BlockSize = int32(binary.LittleEndian.Uint32(data[0:4]))
	h.PrevTopicNum = int16(binary.LittleEndian.Uint16(data[4:6]))
	h.Unused1 = int16(binary.LittleEndian.Uint16(data[6:8]))
	h.NextTopicNum = int16(binary.LittleEndian.Uint16(data[8:10]))
	h.Unused2 = int16(binary.LittleEndian.Uint16(data[10:12]))
	return h, nil
}

// PhraseSource supplies the phrase-substitution decoder for LinkData2 when
// it is phrase-compressed: v3.1 |Phrases (DecodePhraseStream) or v4.0
// |PhrIndex/|PhrImage Hall compression (DecodeHallStream). A file with
// neither present has a nil PhraseSource and LinkData2 is always stored
// raw.
type PhraseSource struct {
	Table *phrase.Table
	Hall  bool // selects DecodeHallStream over DecodePhraseStream
}

func (p *PhraseSource) decode(data []byte) []byte {
	if p == nil || p.Table == nil {
		return data
	}
	if p.Hall {
		return lzcodec.DecodeHallStream(data, p.Table.Lookup)
	}
	return lzcodec.DecodePhraseStream(data, p.Table.Lookup)
}

// Decoder walks a |TOPIC file's blocks and links.
type Decoder struct {
	raw       []byte
	before31  bool
	blockSize int
	lz        bool // true when SystemHeader.Flags selects LZ77 topic blocks
	phrases   *PhraseSource

	// decompressSize is the fixed per-offset-block size NextTopicOffset
	// divides by: 2048 before WinHelp 3.1, 0x4000 from 3.1 on. It is NOT
	// the physical topic_block_size (4096/2048) — the two only coincide
	// by chance for before31 files.
	decompressSize int32

	// offsetBase and posInBlock are the running TOPICOFFSET state: the
	// composite value handed to Visit is offsetBase + posInBlock.
	// offsetBase is blockIndex*0x8000 for the current offset-block;
	// posInBlock is the character count (pre-charset-decode byte count
	// of LinkData2) accumulated since that block's first TOPICLINK.
	offsetBase int32
	posInBlock int32
}

// NewDecoder builds a Decoder over a |TOPIC file's payload (FILEHEADER
// already stripped). blockSize and lz come from the |SYSTEM record's
// compression mode (sysrecord.System.CompressionMode).
func NewDecoder(raw []byte, before31 bool, blockSize int, lz bool, phrases *PhraseSource) *Decoder {
	decompressSize := int32(0x4000)
	if before31 {
		decompressSize = 2048
	}
	return &Decoder{raw: raw, before31: before31, blockSize: blockSize, lz: lz, phrases: phrases, decompressSize: decompressSize}
}

// offsetBlock returns the TOPICOFFSET block index a raw TOPICPOS falls in:
// (rawPos - sizeof(TOPICBLOCKHEADER)) / decompressSize, the NextTopicOffset
// divisor from helpdeco's block-crossing rule.
func (d *Decoder) offsetBlock(rawPos int32) int32 {
	return (rawPos - blockHeaderSize) / d.decompressSize
}

// Visit receives one TOPICLINK's TOPICOFFSET (the composite
// blockIndex*0x8000 + character-position-within-block address that
// hotspots and |CONTEXT/|TopicId entries name), its descriptor, and its
// two raw payloads: LinkData1 (formatting stream) unchanged, and
// LinkData2 (text) already phrase-decompressed where applicable.
// Returning an error aborts the whole walk.
type Visit func(topicOffset int32, link Link, linkData1, linkData2 []byte) error

// Walk iterates every topic block and every TOPICLINK within it, calling
// visit for each. A TOPICLINK with an inconsistent descriptor
// (block_size<=0, data_len1<21, or data_len1>block_size) stops the
// current block's chain without aborting the remaining blocks, mirroring
// observed decompiler leniency with malformed input.
func (d *Decoder) Walk(visit Visit) error {
	d.offsetBase = 0
	d.posInBlock = 0
	offset := 0
	topicPos := blockHeaderSize
	for offset < len(d.raw) {
		if offset+blockHeaderSize > len(d.raw) {
			break
		}
		blockDataSize := d.blockSize - blockHeaderSize
		rawEnd := offset + blockHeaderSize + blockDataSize
		if rawEnd > len(d.raw) {
			rawEnd = len(d.raw)
		}
		blockRaw := d.raw[offset+blockHeaderSize : rawEnd]

		var blockData []byte
		if d.lz {
			blockData = lzcodec.DecompressLZ77(blockRaw)
		} else {
			blockData = blockRaw
		}

		if err := d.walkLinks(blockData, topicPos, visit); err != nil {
			return err
		}

		offset += d.blockSize
		topicPos = offset + blockHeaderSize
	}
	return nil
}

func (d *Decoder) walkLinks(blockData []byte, topicPos int, visit Visit) error {
	offset := 0
	for offset < len(blockData) {
		linkPos := int32(topicPos + offset)
		if offset+linkHeaderSize > len(blockData) {
			break
		}
		raw := blockData[offset : offset+linkHeaderSize]
		link := Link{
			BlockSize:  binary.LittleEndian.Uint32(raw[0:4]),
			DataLen2:   binary.LittleEndian.Uint32(raw[4:8]),
			PrevBlock:  binary.LittleEndian.Uint32(raw[8:12]),
			NextBlock:  binary.LittleEndian.Uint32(raw[12:16]),
			DataLen1:   binary.LittleEndian.Uint32(raw[16:20]),
			RecordType: RecordType(raw[20]),
		}
		if link.BlockSize == 0 || link.DataLen1 < linkHeaderSize || link.DataLen1 > link.BlockSize {
			break
		}

		linkData1Size := int(link.DataLen1) - linkHeaderSize
		linkData2Size := int(link.BlockSize) - int(link.DataLen1)
		data1Start := offset + linkHeaderSize
		data1End := data1Start + linkData1Size
		data2Start := data1End
		data2End := offset + int(link.BlockSize)
		if data1End > len(blockData) || data2End > len(blockData) || data1End > data2Start {
			break
		}

		var linkData1, linkData2Raw []byte
		if linkData1Size > 0 {
			linkData1 = blockData[data1Start:data1End]
		}
		if linkData2Size > 0 {
			linkData2Raw = blockData[data2Start:data2End]
		}
		linkData2 := d.readLinkData2(linkData2Raw, int(link.DataLen2), int(link.BlockSize), int(link.DataLen1))

		topicOffset := d.offsetBase + d.posInBlock
		if err := visit(topicOffset, link, linkData1, linkData2); err != nil {
			return err
		}
		d.posInBlock += int32(len(linkData2))

		if link.NextBlock == 0 {
			break
		}
		if d.before31 {
			offset += int(link.NextBlock)
		} else {
			nextPos := int32(link.NextBlock)
			if d.offsetBlock(nextPos) != d.offsetBlock(linkPos) {
				d.offsetBase = d.offsetBlock(nextPos) * 0x8000
				d.posInBlock = 0
			}
			relative := int(nextPos) - topicPos
			if relative < 0 || relative >= len(blockData) {
				break
			}
			offset = relative
		}
	}
	return nil
}

// readLinkData2 applies phrase decompression when DataLen2 exceeds the
// bytes physically present in the block (block_size - data_len1), the
// signal used throughout to mean "this text is phrase-compressed".
func (d *Decoder) readLinkData2(data []byte, dataLen2, blockSize, dataLen1 int) []byte {
	if dataLen2 <= blockSize-dataLen1 {
		if dataLen2 < len(data) {
			return data[:dataLen2]
		}
		return data
	}
	return d.phrases.decode(data)
}
