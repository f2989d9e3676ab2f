package winhlp

import "github.com/go-winhlp/winhlp/internal/werr"

// Error types surfaced by Open and every HelpFile accessor. They are
// aliases of internal/werr's types so callers can errors.As against a
// stable, importable name without reaching into internal packages.
type (
	InvalidMagic             = werr.InvalidMagic
	TruncatedRecord          = werr.TruncatedRecord
	BTreeCorruption          = werr.BTreeCorruption
	UnknownRecordType        = werr.UnknownRecordType
	UnknownFormattingCommand = werr.UnknownFormattingCommand
	DecompressionFailure     = werr.DecompressionFailure
	UnsupportedFeature       = werr.UnsupportedFeature
)
