package protocol

import "errors"

var (
	ErrMalformedHeader   = errors.New("protocol: malformed header")
	ErrTruncatedPayload  = errors.New("protocol: truncated payload")
	ErrOutOfRange        = errors.New("protocol: value out of range")
	ErrChecksumMismatch  = errors.New("protocol: checksum mismatch")
	ErrInvalidLength     = errors.New("protocol: invalid length")
	ErrUnsupportedFormat = errors.New("protocol: unsupported format")
)
