// Package container implements the outermost layer of a WinHelp file: the
// 16-byte HelpHeader, the internal-file directory B+ tree, and the 9-byte
// FILEHEADER framing that precedes every internal file's payload.
package container

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/werr"
)

const (
	headerMagic = 0x00035F3F
	headerSize  = 16
)

// Header is the HelpHeader at file offset 0.
type Header struct {
	Magic          uint32
	DirectoryStart int32
	FreeChainStart int32 // -1 when the file has no free blocks.
	EntireFileSize uint32
}

// ParseHeader decodes the HelpHeader from the first 16 bytes of raw and
// validates it against the file it precedes: the magic must match and
// directory_start must address a byte inside raw, or parsing fails fast.
func ParseHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < headerSize {
		return h, &werr.TruncatedRecord{Component: "header", Offset: 0, Need: headerSize, Have: len(raw)}
	}
	h.Magic = binary.LittleEndian.Uint32(raw[0:4])
	h.DirectoryStart = int32(binary.LittleEndian.Uint32(raw[4:8]))
	h.FreeChainStart = int32(binary.LittleEndian.Uint32(raw[8:12]))
	h.EntireFileSize = binary.LittleEndian.Uint32(raw[12:16])

	if h.Magic != headerMagic {
		return h, &werr.InvalidMagic{Component: "header", Got: h.Magic, Want: headerMagic}
	}
	if h.DirectoryStart < 0 || int64(h.DirectoryStart) >= int64(len(raw)) {
		return h, &werr.BTreeCorruption{Component: "header", Reason: "directory_start lies outside the file"}
	}
	return h, nil
}
