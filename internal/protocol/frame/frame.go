package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/igtlctl/internal/protocol"
	"github.com/danmuck/igtlctl/internal/protocol/crc64"
)

const (
	HeaderLen      = 58
	ExtHeaderLen   = 12
	TypeFieldLen   = 12
	DeviceFieldLen = 20

	// Version 2 frames carry an extended header at the start of the body.
	Version1 uint16 = 1
	Version2 uint16 = 2
)

var (
	ErrShortHeader     = fmt.Errorf("%w: short fixed header", protocol.ErrMalformedHeader)
	ErrBodyTooLarge    = fmt.Errorf("%w: body size exceeds limit", protocol.ErrMalformedHeader)
	ErrShortBody       = fmt.Errorf("%w: body shorter than declared size", protocol.ErrTruncatedPayload)
	ErrBadExtHeaderLen = fmt.Errorf("%w: extended header size", protocol.ErrInvalidLength)
)

// Header is the fixed 58-byte wire header.
type Header struct {
	Version    uint16
	Type       string
	DeviceName string
	Timestamp  uint64
	BodySize   uint64
	Checksum   uint64
}

// ExtendedHeader is the 12-byte section opening a version 2 body.
type ExtendedHeader struct {
	Size               uint16
	MetadataHeaderSize uint16
	MetadataSize       uint32
	MessageID          uint32
}

// Frame is one complete wire message. Body holds everything after the header.
type Frame struct {
	Header Header
	Body   []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxBodyBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxBodyBytes: 64 * 1024 * 1024,
	}
}

// NewHeader builds a version 2 header for a body of bodyLen bytes.
func NewHeader(msgType, device string, bodyLen int, checksum uint64) Header {
	return Header{
		Version:    Version2,
		Type:       msgType,
		DeviceName: device,
		BodySize:   uint64(bodyLen),
		Checksum:   checksum,
	}
}

func EncodeHeader(h Header) []byte {
	w := protocol.NewWriter(HeaderLen)
	w.U16(h.Version)
	w.ASCII(h.Type, TypeFieldLen)
	w.ASCII(h.DeviceName, DeviceFieldLen)
	w.U64(h.Timestamp)
	w.U64(h.BodySize)
	w.U64(h.Checksum)
	return w.Bytes()
}

// DecodeHeader parses the first 58 bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: have %d bytes", ErrShortHeader, len(b))
	}
	c, err := protocol.NewCursor(b[:HeaderLen], 0)
	if err != nil {
		return Header{}, err
	}
	var h Header
	// Lengths are fixed and checked above, so the reads below cannot fail.
	h.Version, _ = c.U16()
	h.Type, _ = c.ASCII(TypeFieldLen)
	h.DeviceName, _ = c.ASCII(DeviceFieldLen)
	h.Timestamp, _ = c.U64()
	h.BodySize, _ = c.U64()
	h.Checksum, _ = c.U64()
	return h, nil
}

// HasExtendedHeader reports whether bodies of this version open with an extended header.
func (h Header) HasExtendedHeader() bool {
	return h.Version >= Version2
}

func EncodeExtendedHeader(e ExtendedHeader) []byte {
	w := protocol.NewWriter(ExtHeaderLen)
	w.U16(e.Size)
	w.U16(e.MetadataHeaderSize)
	w.U32(e.MetadataSize)
	w.U32(e.MessageID)
	return w.Bytes()
}

// DecodeExtendedHeader parses the extended header starting at offset.
func DecodeExtendedHeader(b []byte, offset int) (ExtendedHeader, error) {
	c, err := protocol.NewCursor(b, offset)
	if err != nil {
		return ExtendedHeader{}, err
	}
	if c.Remaining() < ExtHeaderLen {
		return ExtendedHeader{}, fmt.Errorf("%w: extended header needs %d bytes, have %d", protocol.ErrTruncatedPayload, ExtHeaderLen, c.Remaining())
	}
	var e ExtendedHeader
	e.Size, _ = c.U16()
	e.MetadataHeaderSize, _ = c.U16()
	e.MetadataSize, _ = c.U32()
	e.MessageID, _ = c.U32()
	if e.Size < ExtHeaderLen {
		return ExtendedHeader{}, fmt.Errorf("%w: %d", ErrBadExtHeaderLen, e.Size)
	}
	return e, nil
}

// Build frames body under a version 2 header whose checksum covers body.
func Build(msgType, device string, body []byte, table *crc64.Table) []byte {
	sum := crc64.Compute(table, body, 0, 0)
	head := EncodeHeader(NewHeader(msgType, device, len(body), sum))
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

// Bytes re-serializes the frame as received.
func (f Frame) Bytes() []byte {
	out := EncodeHeader(f.Header)
	return append(out, f.Body...)
}

func (f Frame) ComputeChecksum(table *crc64.Table) uint64 {
	return crc64.Compute(table, f.Body, 0, 0)
}

// Verify compares the declared checksum with one recomputed over the body.
func (f Frame) Verify(table *crc64.Table) error {
	got := f.ComputeChecksum(table)
	if got != f.Header.Checksum {
		return fmt.Errorf("%w: declared=%016x computed=%016x", protocol.ErrChecksumMismatch, f.Header.Checksum, got)
	}
	return nil
}

// ExtendedHeader returns the parsed extended header; ok is false for version 1 frames.
func (f Frame) ExtendedHeader() (ExtendedHeader, bool, error) {
	if !f.Header.HasExtendedHeader() {
		return ExtendedHeader{}, false, nil
	}
	e, err := DecodeExtendedHeader(f.Body, 0)
	if err != nil {
		return ExtendedHeader{}, false, err
	}
	return e, true, nil
}

// ContentOffset is the body offset of the message content.
func (f Frame) ContentOffset() (int, error) {
	e, ok, err := f.ExtendedHeader()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if int(e.Size) > len(f.Body) {
		return 0, fmt.Errorf("%w: extended header size %d exceeds body %d", protocol.ErrTruncatedPayload, e.Size, len(f.Body))
	}
	return int(e.Size), nil
}

// Content returns the message content between the extended header and the metadata.
func (f Frame) Content() ([]byte, error) {
	start, err := f.ContentOffset()
	if err != nil {
		return nil, err
	}
	end := len(f.Body)
	if e, ok, _ := f.ExtendedHeader(); ok {
		meta := int(e.MetadataHeaderSize) + int(e.MetadataSize)
		if meta > end-start {
			return nil, fmt.Errorf("%w: metadata %d bytes exceeds body", protocol.ErrTruncatedPayload, meta)
		}
		end -= meta
	}
	return f.Body[start:end], nil
}

// Metadata returns the raw metadata header and body sections, if any.
func (f Frame) Metadata() (header, body []byte, err error) {
	e, ok, err := f.ExtendedHeader()
	if err != nil || !ok {
		return nil, nil, err
	}
	total := int(e.MetadataHeaderSize) + int(e.MetadataSize)
	if total == 0 {
		return nil, nil, nil
	}
	if total > len(f.Body)-int(e.Size) {
		return nil, nil, fmt.Errorf("%w: metadata %d bytes exceeds body", protocol.ErrTruncatedPayload, total)
	}
	start := len(f.Body) - total
	split := start + int(e.MetadataHeaderSize)
	return f.Body[start:split], f.Body[split:], nil
}

// ReadFrame blocks until one full frame has been read from r.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.BodySize > limits.MaxBodyBytes {
		return Frame{}, ErrBodyTooLarge
	}

	body := make([]byte, h.BodySize)
	if h.BodySize > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, ErrShortBody
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Body: body}, nil
}
