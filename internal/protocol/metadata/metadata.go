// Package metadata encodes the key/value block appended to version 2 bodies.
//
// The block is split in two sections. The header section holds an index count
// and one (key size, value encoding, value size) triple per entry; the body
// section holds each key immediately followed by its value, in header order.
package metadata

import (
	"fmt"
	"math"

	"github.com/danmuck/igtlctl/internal/protocol"
)

// EncodingASCII is the MIBenum value for US-ASCII.
const EncodingASCII uint16 = 3

const (
	countLen = 2
	entryLen = 2 + 2 + 4
)

// MaxEntries is the largest count whose header size fits the 16-bit
// metadata-header-size field.
const MaxEntries = (math.MaxUint16 - countLen) / entryLen

// Entry is one key/value pair.
type Entry struct {
	Key      string
	Value    string
	Encoding uint16
}

// Block is an encoded metadata block.
type Block struct {
	Header []byte
	Body   []byte
}

// HeaderSize is the metadata-header-size field of the extended header.
func (b Block) HeaderSize() uint16 {
	return uint16(len(b.Header))
}

// Size is the metadata-size field of the extended header.
func (b Block) Size() uint32 {
	return uint32(len(b.Body))
}

func (b Block) Len() int {
	return len(b.Header) + len(b.Body)
}

// HeaderLen returns the metadata header size for count entries.
func HeaderLen(count int) int {
	return countLen + entryLen*count
}

// Encode lays out entries. Sizes are taken once from the byte lengths and reused
// for both sections so the header always describes the body exactly.
func Encode(entries []Entry) (Block, error) {
	if len(entries) == 0 {
		return Block{}, nil
	}
	if len(entries) > MaxEntries {
		return Block{}, fmt.Errorf("%w: %d metadata entries", protocol.ErrInvalidLength, len(entries))
	}

	head := protocol.NewWriter(HeaderLen(len(entries)))
	head.U16(uint16(len(entries)))
	bodyLen := 0
	for _, e := range entries {
		if len(e.Key) > math.MaxUint16 {
			return Block{}, fmt.Errorf("%w: metadata key %q too long", protocol.ErrInvalidLength, e.Key[:16])
		}
		if uint64(len(e.Value)) > math.MaxUint32 {
			return Block{}, fmt.Errorf("%w: metadata value for %q too long", protocol.ErrInvalidLength, e.Key)
		}
		enc := e.Encoding
		if enc == 0 {
			enc = EncodingASCII
		}
		head.U16(uint16(len(e.Key)))
		head.U16(enc)
		head.U32(uint32(len(e.Value)))
		bodyLen += len(e.Key) + len(e.Value)
	}

	body := make([]byte, 0, bodyLen)
	for _, e := range entries {
		body = append(body, e.Key...)
		body = append(body, e.Value...)
	}
	return Block{Header: head.Bytes(), Body: body}, nil
}

// Decode parses the two metadata sections. Entry boundaries come only from the
// size fields in header.
func Decode(header, body []byte) ([]Entry, error) {
	if len(header) == 0 && len(body) == 0 {
		return nil, nil
	}
	hc, err := protocol.NewCursor(header, 0)
	if err != nil {
		return nil, err
	}
	count, err := hc.U16()
	if err != nil {
		return nil, err
	}
	if len(header) != HeaderLen(int(count)) {
		return nil, fmt.Errorf("%w: metadata header %d bytes for %d entries", protocol.ErrInvalidLength, len(header), count)
	}

	bc, err := protocol.NewCursor(body, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, count)
	for i := 0; i < int(count); i++ {
		keySize, _ := hc.U16()
		enc, _ := hc.U16()
		valueSize, _ := hc.U32()

		key, err := bc.Bytes(int(keySize))
		if err != nil {
			return nil, fmt.Errorf("metadata entry %d key: %w", i, err)
		}
		value, err := bc.Bytes(int(valueSize))
		if err != nil {
			return nil, fmt.Errorf("metadata entry %d value: %w", i, err)
		}
		entries = append(entries, Entry{Key: string(key), Value: string(value), Encoding: enc})
	}
	if bc.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing metadata bytes", protocol.ErrInvalidLength, bc.Remaining())
	}
	return entries, nil
}

// Lookup returns the value for key.
func Lookup(entries []Entry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}
