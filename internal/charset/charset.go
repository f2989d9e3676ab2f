// Package charset resolves the text codec a help file's |SYSTEM record
// selects (via LCID or CHARSET) to a golang.org/x/text/encoding.Encoding,
// and decodes raw bytes through it with a lossless-then-lossy fallback
// chain so that a corrupt or unrecognised codepage never aborts the parse.
package charset

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// ForLCID returns the encoding a |SYSTEM LCID record selects, per the
// table in helpfile.md's locale appendix. Unknown LCIDs fall back to
// charmap.Windows1252, the common case for Western help files.
func ForLCID(lcid uint16) encoding.Encoding {
	switch lcid {
	case 0x0409, 0x0809, 0x040C, 0x0407, 0x0410, 0x040A:
		return charmap.Windows1252
	case 0x0419:
		return charmap.Windows1251
	case 0x0411:
		return japanese.ShiftJIS
	case 0x0412:
		return korean.EUCKR
	case 0x0804:
		return simplifiedchinese.GBK
	case 0x0404:
		return traditionalchinese.Big5
	default:
		return charmap.Windows1252
	}
}

// ForCharset returns the encoding a |SYSTEM CHARSET record selects, per
// the Windows CHARSET byte values used in LOGFONT and DEFFONT records.
func ForCharset(charset uint8) encoding.Encoding {
	switch charset {
	case 161:
		return charmap.Windows1253 // Greek
	case 162:
		return charmap.Windows1254 // Turkish
	case 177:
		return charmap.Windows1255 // Hebrew
	case 178:
		return charmap.Windows1256 // Arabic
	case 186:
		return charmap.Windows1257 // Baltic
	case 204:
		return charmap.Windows1251 // Russian
	case 222:
		return charmap.Windows874 // Thai
	case 238:
		return charmap.Windows1250 // East Europe
	case 128:
		return japanese.ShiftJIS
	case 129:
		return korean.EUCKR
	case 134:
		return simplifiedchinese.GBK
	case 136:
		return traditionalchinese.Big5
	default:
		return charmap.Windows1252
	}
}

// fallbackChain is tried, in order, after the selected encoding fails to
// decode a string. Text decoding never fails the parse: the final
// fallback is ISO-8859-1, which accepts every byte value.
var fallbackChain = []encoding.Encoding{
	charmap.Windows1252,
	charmap.Windows1251,
	charmap.CodePage850,
	charmap.ISO8859_1,
}

// Decode converts raw bytes to a string using primary, then each encoding
// in fallbackChain in turn, finally a lossy ISO-8859-1 decode (which
// cannot itself fail, since it is a single-byte codec covering all 256
// values) so the caller always gets a string back.
func Decode(primary encoding.Encoding, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if s, err := primary.NewDecoder().String(string(raw)); err == nil {
		return s
	}
	for _, enc := range fallbackChain {
		if enc == primary {
			continue
		}
		if s, err := enc.NewDecoder().String(string(raw)); err == nil {
			return s
		}
	}
	s, _ := charmap.ISO8859_1.NewDecoder().String(string(raw))
	return s
}
