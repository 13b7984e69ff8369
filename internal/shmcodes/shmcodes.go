// Package shmcodes defines the wire format shared by shmproducer and
// shmconsumer: a fixed-size array of 4-byte little-endian type codes
// written directly into a SysV shared-memory segment (spec §6).
package shmcodes

import "encoding/binary"

// CodeSize is the byte width of one type-code cell.
const CodeSize = 4

// Code values, per spec §6.
const (
	Empty       int32 = 0
	EndOfStream int32 = -1
)

// Write stores code at the given cell index within seg.
func Write(seg []byte, idx int, code int32) {
	binary.LittleEndian.PutUint32(seg[idx*CodeSize:], uint32(code))
}

// Read loads the code at the given cell index within seg.
func Read(seg []byte, idx int) int32 {
	return int32(binary.LittleEndian.Uint32(seg[idx*CodeSize:]))
}
