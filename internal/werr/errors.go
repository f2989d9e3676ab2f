// Package werr defines the error taxonomy shared by every winhlp decoder
// component, so that callers can type-switch on failure class regardless of
// which internal file triggered it.
package werr

import "fmt"

// InvalidMagic reports a header, B+ tree, or system record whose magic
// number did not match. It is fatal for the containing scope.
type InvalidMagic struct {
	Component string
	Got, Want uint32
}

func (e *InvalidMagic) Error() string {
	return fmt.Sprintf("%s: invalid magic: got 0x%08x, want 0x%08x", e.Component, e.Got, e.Want)
}

// TruncatedRecord reports a bounded read that would overshoot the available
// bytes. It is fatal for the current record only; callers may resync at the
// next block boundary.
type TruncatedRecord struct {
	Component string
	Offset    int
	Need      int
	Have      int
}

func (e *TruncatedRecord) Error() string {
	return fmt.Sprintf("%s: truncated record at offset %d: need %d bytes, have %d", e.Component, e.Offset, e.Need, e.Have)
}

// BTreeCorruption reports an invalid page index, inconsistent entry count,
// or malformed string inside a B+ tree. It aborts only the tree in which it
// occurs.
type BTreeCorruption struct {
	Component string
	Reason    string
}

func (e *BTreeCorruption) Error() string {
	return fmt.Sprintf("%s: b+tree corruption: %s", e.Component, e.Reason)
}

// UnknownRecordType reports a TOPICLINK record_type outside the documented
// set. Strict-mode callers abort; lenient callers stop the current topic.
type UnknownRecordType struct {
	Type byte
}

func (e *UnknownRecordType) Error() string {
	return fmt.Sprintf("topic: unknown record type 0x%02x", e.Type)
}

// UnknownFormattingCommand reports a byte in a display record's formatting
// stream that isn't in the command table.
type UnknownFormattingCommand struct {
	Command byte
}

func (e *UnknownFormattingCommand) Error() string {
	return fmt.Sprintf("richtext: unknown formatting command 0x%02x", e.Command)
}

// DecompressionFailure reports a codec failure other than plain truncation,
// e.g. a corrupt phrase index or an invalid Hall compression byte. Note an
// LZ77 back-reference into an uninitialised window is explicitly NOT an
// error per spec.
type DecompressionFailure struct {
	Codec  string
	Reason string
}

func (e *DecompressionFailure) Error() string {
	return fmt.Sprintf("%s: decompression failure: %s", e.Codec, e.Reason)
}

// UnsupportedFeature reports an MVB-specific (or otherwise version-gated)
// construct encountered where it isn't expected.
type UnsupportedFeature struct {
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.Feature)
}
