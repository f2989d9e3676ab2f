// Package lzcodec implements the byte-oriented compression codecs used by
// WinHelp topic blocks and phrase images: LZ77, run-length, and the two
// phrase-substitution streams (v3.1 "Phrases" and v4.0 "Hall").
package lzcodec

import "github.com/go-winhlp/winhlp/internal/werr"

// Method selects one of the four topic-block compression schemes.
type Method byte

const (
	MethodIdentity Method = 0
	MethodRunLen   Method = 1
	MethodLZ77     Method = 2
	MethodBoth     Method = 3 // LZ77 first, then run-length on the LZ77 output.
)

// Decompress applies the scheme selected by method. Method 3 runs LZ77
// first and then run-length-decodes its output (per spec; helpdeco-derived
// references apply the two passes in the opposite order, but the two
// codecs are not generally interchangeable in which pass runs first, and
// this implementation follows the documented behavior).
func Decompress(method Method, data []byte) ([]byte, error) {
	switch method {
	case MethodIdentity:
		return data, nil
	case MethodRunLen:
		return DecompressRunLength(data)
	case MethodLZ77:
		return DecompressLZ77(data), nil
	case MethodBoth:
		lz := DecompressLZ77(data)
		return DecompressRunLength(lz)
	default:
		return nil, &werr.DecompressionFailure{Codec: "lzcodec", Reason: "unknown method"}
	}
}

// windowSize is the size of the LZ77 circular window, initialised to zero
// bytes. A back-reference into not-yet-written window positions is not an
// error: it simply copies whatever zero (or stale) bytes are there, matching
// observed compiler output.
const windowSize = 0x1000

// DecompressLZ77 decodes the classic byte-oriented LZSS variant used for
// topic blocks and (optionally) phrase images: a control byte precedes
// eight tokens, where a set bit means "back-reference" and a clear bit
// means "literal byte". Matches may overlap the write cursor.
func DecompressLZ77(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	var window [windowSize]byte
	var out []byte
	pos := 0
	i := 0
	for i < len(data) {
		control := data[i]
		i++
		for bit := 0; bit < 8 && i <= len(data); bit++ {
			if control&(1<<bit) == 0 {
				if i >= len(data) {
					return out
				}
				b := data[i]
				i++
				window[pos&(windowSize-1)] = b
				out = append(out, b)
				pos++
				continue
			}
			if i+1 >= len(data) {
				return out
			}
			word := uint16(data[i]) | uint16(data[i+1])<<8
			i += 2
			length := int((word>>12)&0x0F) + 3
			back := pos - int(word&0x0FFF) - 1
			for k := 0; k < length; k++ {
				b := window[back&(windowSize-1)]
				window[pos&(windowSize-1)] = b
				out = append(out, b)
				back++
				pos++
			}
		}
	}
	return out
}

// DecompressRunLength decodes the signed-count run-length scheme: a signed
// byte c starts a run; |c| is the run length; the sign selects mode
// (positive = repeat the next byte |c| times, negative = copy the next |c|
// bytes verbatim). Running off the end mid-run is TruncatedRecord.
func DecompressRunLength(data []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(data) {
		c := int8(data[i])
		i++
		n := int(c)
		if n < 0 {
			n = -n
			if i+n > len(data) {
				return nil, &werr.TruncatedRecord{Component: "runlen", Offset: i, Need: n, Have: len(data) - i}
			}
			out = append(out, data[i:i+n]...)
			i += n
		} else {
			if i >= len(data) {
				return nil, &werr.TruncatedRecord{Component: "runlen", Offset: i, Need: 1, Have: 0}
			}
			b := data[i]
			i++
			for k := 0; k < n; k++ {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// PhraseLookup resolves a phrase index to its bytes; ok is false for an
// out-of-range index, in which case the token is silently dropped (matches
// observed compiler leniency).
type PhraseLookup func(index int) (phrase []byte, ok bool)

// DecodePhraseStream decodes the v3.1 phrase-substitution scheme: bytes in
// [1,14] introduce a 2-byte phrase token (code = b*256-256+next; index =
// code/2; an odd code additionally emits a trailing space). Bytes 0 and >=15
// pass through unchanged.
func DecodePhraseStream(data []byte, lookup PhraseLookup) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		b := data[i]
		i++
		if b == 0 || b >= 15 {
			out = append(out, b)
			continue
		}
		if i >= len(data) {
			break
		}
		next := data[i]
		i++
		code := int(b)*256 - 256 + int(next)
		idx := code / 2
		if phrase, ok := lookup(idx); ok {
			out = append(out, phrase...)
			if code%2 == 1 {
				out = append(out, ' ')
			}
		}
	}
	return out
}

// DecodeHallStream decodes the v4.0 "Hall" compression scheme (MVB), which
// dispatches on the low bits of each byte: phrase reference (1- or 2-byte
// form), literal copy, space run, or NUL run.
func DecodeHallStream(data []byte, lookup PhraseLookup) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		x := data[i]
		i++
		switch {
		case x&0x01 == 0:
			if phrase, ok := lookup(int(x) >> 1); ok {
				out = append(out, phrase...)
			}
		case x&0x03 == 0x01:
			if i >= len(data) {
				return out
			}
			y := data[i]
			i++
			idx := 128 + int(x>>2)*256 + int(y)
			if phrase, ok := lookup(idx); ok {
				out = append(out, phrase...)
			}
		case x&0x07 == 0x03:
			n := int(x>>3) + 1
			if i+n > len(data) {
				n = len(data) - i
			}
			out = append(out, data[i:i+n]...)
			i += n
		case x&0x0F == 0x07:
			n := int(x>>4) + 1
			for k := 0; k < n; k++ {
				out = append(out, ' ')
			}
		case x&0x0F == 0x0F:
			n := int(x>>4) + 1
			for k := 0; k < n; k++ {
				out = append(out, 0)
			}
		}
	}
	return out
}
