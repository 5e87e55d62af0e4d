package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/igtlctl/internal/protocol"
	"github.com/danmuck/igtlctl/internal/testutil/testlog"
)

func TestEncodeLayout(t *testing.T) {
	block, err := Encode([]Entry{
		{Key: "ModelName", Value: "D5L40.obj"},
		{Key: "NumOfScrews", Value: "2"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if int(block.HeaderSize()) != 2+8*2 {
		t.Fatalf("header size=%d", block.HeaderSize())
	}
	if int(block.Size()) != len("ModelName")+len("D5L40.obj")+len("NumOfScrews")+len("2") {
		t.Fatalf("body size=%d", block.Size())
	}

	h := block.Header
	if binary.BigEndian.Uint16(h[0:2]) != 2 {
		t.Fatalf("index count: % x", h[0:2])
	}
	if binary.BigEndian.Uint16(h[2:4]) != 9 || binary.BigEndian.Uint16(h[4:6]) != EncodingASCII || binary.BigEndian.Uint32(h[6:10]) != 9 {
		t.Fatalf("first entry header: % x", h[2:10])
	}
	if binary.BigEndian.Uint16(h[10:12]) != 11 || binary.BigEndian.Uint32(h[14:18]) != 1 {
		t.Fatalf("second entry header: % x", h[10:18])
	}
	if !bytes.Equal(block.Body, []byte("ModelNameD5L40.objNumOfScrews2")) {
		t.Fatalf("unexpected body: %q", block.Body)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []Entry{
		{Key: "ModelName", Value: "None"},
		{Key: "ModelColor", Value: "0.5,0.25,1"},
		{Key: "ModelNumber", Value: "7"},
		{Key: "Empty", Value: ""},
	}
	block, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(block.Header, block.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("entry count=%d", len(out))
	}
	for i := range in {
		if out[i].Key != in[i].Key || out[i].Value != in[i].Value || out[i].Encoding != EncodingASCII {
			t.Fatalf("entry %d mismatch: got=%+v want=%+v", i, out[i], in[i])
		}
	}
	if v, ok := Lookup(out, "ModelColor"); !ok || v != "0.5,0.25,1" {
		t.Fatalf("lookup: %q %v", v, ok)
	}
	if _, ok := Lookup(out, "Missing"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestEncodeEmpty(t *testing.T) {
	block, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if block.Len() != 0 {
		t.Fatalf("expected empty block, got %d bytes", block.Len())
	}
	out, err := Decode(nil, nil)
	if err != nil || out != nil {
		t.Fatalf("decode empty: %v %v", out, err)
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	block, err := Encode([]Entry{{Key: "k", Value: "value"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(block.Header, block.Body[:len(block.Body)-1])
	if !errors.Is(err, protocol.ErrTruncatedPayload) {
		t.Fatalf("expected ErrTruncatedPayload, got %v", err)
	}
	_, err = Decode(block.Header, append(append([]byte(nil), block.Body...), 'x'))
	if !errors.Is(err, protocol.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for trailing bytes, got %v", err)
	}
	_, err = Decode(block.Header[:len(block.Header)-1], block.Body)
	if !errors.Is(err, protocol.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for header size, got %v", err)
	}
}

func TestEncodeEntryLimit(t *testing.T) {
	testlog.Start(t)
	entries := make([]Entry, MaxEntries+1)
	for i := range entries {
		entries[i] = Entry{Key: "k", Value: "v"}
	}
	if _, err := Encode(entries); !errors.Is(err, protocol.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength past %d entries, got %v", MaxEntries, err)
	}

	block, err := Encode(entries[:MaxEntries])
	if err != nil {
		t.Fatalf("encode at limit: %v", err)
	}
	if int(block.HeaderSize()) != len(block.Header) {
		t.Fatalf("header size %d does not describe %d header bytes", block.HeaderSize(), len(block.Header))
	}
}
