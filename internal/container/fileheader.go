package container

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/werr"
)

// fileHeaderSize is the size of the FILEHEADER in bytes: two int32 fields
// plus one byte, with no padding (the format is packed on disk).
const fileHeaderSize = 9

// FileHeader is the 9-byte structure at the start of every internal file.
type FileHeader struct {
	ReservedSpace int32 // space reserved for this file, including FileHeader
	UsedSpace     int32 // space actually used, excluding FileHeader
	FileFlags     uint8 // normally 4
}

// readFileHeader decodes the FILEHEADER at the start of raw[offset:] and
// returns it together with the UsedSpace bytes that follow it.
func readFileHeader(component string, raw []byte, offset int) (FileHeader, []byte, error) {
	var fh FileHeader
	if offset < 0 || offset+fileHeaderSize > len(raw) {
		return fh, nil, &werr.TruncatedRecord{Component: component, Offset: offset, Need: fileHeaderSize, Have: len(raw) - offset}
	}
	hdr := raw[offset : offset+fileHeaderSize]
	fh.ReservedSpace = int32(binary.LittleEndian.Uint32(hdr[0:4]))
	fh.UsedSpace = int32(binary.LittleEndian.Uint32(hdr[4:8]))
	fh.FileFlags = hdr[8]

	payloadStart := offset + fileHeaderSize
	if fh.UsedSpace < 0 || payloadStart+int(fh.UsedSpace) > len(raw) {
		return fh, nil, &werr.TruncatedRecord{Component: component, Offset: payloadStart, Need: int(fh.UsedSpace), Have: len(raw) - payloadStart}
	}
	return fh, raw[payloadStart : payloadStart+int(fh.UsedSpace)], nil
}
