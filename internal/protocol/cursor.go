package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cursor reads big-endian fields from a byte slice, advancing an offset.
// Every read is bounds-checked and fails with ErrTruncatedPayload.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor positions a cursor at offset within buf.
func NewCursor(buf []byte, offset int) (*Cursor, error) {
	if offset < 0 || offset > len(buf) {
		return nil, fmt.Errorf("%w: offset %d outside buffer of %d bytes", ErrTruncatedPayload, offset, len(buf))
	}
	return &Cursor{buf: buf, off: offset}, nil
}

func (c *Cursor) Offset() int {
	return c.off
}

func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedPayload, n, c.off, c.Remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Bytes returns the next n bytes. The slice aliases the underlying buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// ASCII reads a fixed-width ascii field and strips its padding.
func (c *Cursor) ASCII(width int) (string, error) {
	b, err := c.take(width)
	if err != nil {
		return "", err
	}
	return TrimFixedASCII(b), nil
}
