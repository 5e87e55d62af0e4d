// Package protocol owns wire contract and parsing primitives.
//
// Ownership boundary:
// - error taxonomy shared by codec packages
// - bounds-checked big-endian cursor and writer
// - fixed-width ascii field helpers
//
// Subpackages:
// - crc64: frame body checksum
// - frame: 58-byte header, extended header, framing and reassembly
// - metadata: key/value block appended to outbound pose messages
// - schema: message type tags and minimum body sizes
// - message: TRANSFORM and IMAGE bodies
// - session: link timing and retry defaults
package protocol
