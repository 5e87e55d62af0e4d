package protocol

import (
	"encoding/binary"
	"math"
)

// Writer appends big-endian fields to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// ASCII writes s into a fixed-width field, truncating or NUL-padding to width.
func (w *Writer) ASCII(s string, width int) {
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, width)...)
	PutFixedASCII(w.buf[start:], s)
}
