package frame

import "fmt"

// Assembler reassembles frames from a byte stream delivered in arbitrary chunks.
// A frame is released only once its header and full declared body are buffered.
type Assembler struct {
	limits  Limits
	buf     []byte
	pending *Header
}

func NewAssembler(limits Limits) *Assembler {
	return &Assembler{limits: limits}
}

// Write appends received bytes.
func (a *Assembler) Write(p []byte) {
	a.buf = append(a.buf, p...)
}

// Buffered is the number of bytes held for incomplete frames.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Next returns the next complete frame. ok is false when more bytes are needed.
// An oversized body declaration discards all buffered bytes and returns an error.
func (a *Assembler) Next() (Frame, bool, error) {
	if a.pending == nil {
		if len(a.buf) < HeaderLen {
			return Frame{}, false, nil
		}
		h, err := DecodeHeader(a.buf[:HeaderLen])
		if err != nil {
			return Frame{}, false, err
		}
		if h.BodySize > a.limits.MaxBodyBytes {
			a.Reset()
			return Frame{}, false, fmt.Errorf("%w: device=%q body_size=%d", ErrBodyTooLarge, h.DeviceName, h.BodySize)
		}
		a.pending = &h
	}

	total := HeaderLen + int(a.pending.BodySize)
	if len(a.buf) < total {
		return Frame{}, false, nil
	}

	body := make([]byte, a.pending.BodySize)
	copy(body, a.buf[HeaderLen:total])
	f := Frame{Header: *a.pending, Body: body}

	rest := copy(a.buf, a.buf[total:])
	a.buf = a.buf[:rest]
	a.pending = nil
	return f, true, nil
}

// Reset drops any partially buffered frame.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.pending = nil
}
