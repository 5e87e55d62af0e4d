// Package crc64 implements the table-driven, non-reflected 64-bit CRC used to
// protect frame bodies.
//
// hash/crc64 in the standard library only provides the reflected variant, which
// produces different values for the same polynomial.
package crc64

import "sync"

// ECMA182 is the polynomial 0x42F0E1EBA9EA3693 (bit 63 implicit).
const ECMA182 uint64 = 0x42F0E1EBA9EA3693

const topBit uint64 = 1 << 63

// Table is a 256-entry lookup table for one polynomial.
type Table [256]uint64

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// NewTable builds the lookup table by shifting each index through 8 bits.
func NewTable(poly uint64) *Table {
	t := new(Table)
	for i := 0; i < 256; i++ {
		v := uint64(i) << 56
		for bit := 0; bit < 8; bit++ {
			if v&topBit != 0 {
				v = (v << 1) ^ poly
			} else {
				v <<= 1
			}
		}
		t[i] = v
	}
	return t
}

// Default returns the shared ECMA-182 table. Tables are read-only after construction.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable(ECMA182)
	})
	return defaultTable
}

// Compute returns the checksum of b starting from initial, xored with finalXOR.
func Compute(t *Table, b []byte, initial, finalXOR uint64) uint64 {
	crc := initial
	for _, c := range b {
		crc = t[byte(crc>>56)^c] ^ (crc << 8)
	}
	return crc ^ finalXOR
}

// Checksum computes b with the default table, zero initial value and no final xor.
func Checksum(b []byte) uint64 {
	return Compute(Default(), b, 0, 0)
}
