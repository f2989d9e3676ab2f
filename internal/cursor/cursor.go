// Package cursor provides bounds-checked byte reads and the three
// variable-width integer encodings used throughout the WinHelp file
// formats (the "compressed ints" of HCRTF).
package cursor

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/werr"
)

// Cursor is a bounds-checked reader over a byte slice the decoder does not
// own; it never copies or mutates the backing array.
type Cursor struct {
	Component string // used in TruncatedRecord for diagnostics
	buf       []byte
	off       int
}

// New returns a Cursor positioned at the start of buf.
func New(component string, buf []byte) *Cursor {
	return &Cursor{Component: component, buf: buf}
}

// NewAt returns a Cursor positioned at off within buf.
func NewAt(component string, buf []byte, off int) *Cursor {
	return &Cursor{Component: component, buf: buf, off: off}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int { return c.off }

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(off int) { c.off = off }

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.off }

// Bytes returns the underlying buffer (for callers that need the whole
// slice, e.g. to hand to a decompressor).
func (c *Cursor) Bytes() []byte { return c.buf }

func (c *Cursor) truncated(need int) error {
	return &werr.TruncatedRecord{Component: c.Component, Offset: c.off, Need: need, Have: c.Len()}
}

// Byte reads a single byte.
func (c *Cursor) Byte() (byte, error) {
	if c.Len() < 1 {
		return 0, c.truncated(1)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// Peek returns the next byte without advancing the cursor.
func (c *Cursor) Peek() (byte, error) {
	if c.Len() < 1 {
		return 0, c.truncated(1)
	}
	return c.buf[c.off], nil
}

// Take reads n raw bytes.
func (c *Cursor) Take(n int) ([]byte, error) {
	if n < 0 || c.Len() < n {
		return nil, c.truncated(n)
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// U8 reads an unsigned byte.
func (c *Cursor) U8() (uint8, error) { return c.Byte() }

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// StringZ reads a NUL-terminated string (without the NUL) starting at the
// cursor, in the raw bytes of the selected codepage; callers decode it with
// internal/charset.
func (c *Cursor) StringZ() ([]byte, error) {
	start := c.off
	for {
		b, err := c.Byte()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return c.buf[start : c.off-1], nil
		}
	}
}

// ScanWord decodes the "scan_word" compressed u16: the low bit of the first
// byte selects a 1-byte or 2-byte encoding.
func (c *Cursor) ScanWord() (uint16, error) {
	b0, err := c.Byte()
	if err != nil {
		return 0, err
	}
	if b0&1 == 0 {
		return uint16(b0) >> 1, nil
	}
	b1, err := c.Byte()
	if err != nil {
		return 0, err
	}
	v := uint16(b0) | uint16(b1)<<8
	return v >> 1, nil
}

// ScanInt decodes the "scan_int" compressed i16.
func (c *Cursor) ScanInt() (int16, error) {
	b0, err := c.Byte()
	if err != nil {
		return 0, err
	}
	if b0&1 == 0 {
		return int16(b0>>1) - 0x40, nil
	}
	b1, err := c.Byte()
	if err != nil {
		return 0, err
	}
	v := uint16(b0) | uint16(b1)<<8
	return int16(v>>1) - 0x4000, nil
}

// ScanLong decodes the "scan_long" compressed i32: the short form reads a
// 16-bit word and sign-extends the result; the long form reads a full
// 32-bit word.
func (c *Cursor) ScanLong() (int32, error) {
	b0, err := c.Peek()
	if err != nil {
		return 0, err
	}
	if b0&1 == 0 {
		v, err := c.U16()
		if err != nil {
			return 0, err
		}
		return int32(int16(v>>1) - 0x4000), nil
	}
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	return int32(v>>1) - 0x40000000, nil
}
