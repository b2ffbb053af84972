// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"encoding/binary"
	"math"
)

// UOffset is an unsigned, 32-bit, relative reference: position + value =
// target. Zero at a header position means null.
type UOffset uint32

// SOffset is a signed, 32-bit relative reference. It is used only for the
// table-to-vtable back link.
type SOffset int32

// VOffset is an unsigned, 16-bit vtable entry: a byte offset within a table,
// or zero for an absent field.
type VOffset uint16

// Scalar byte widths, matching the wire format in spec.md section 6.
const (
	SizeBool    = 1
	SizeInt8    = 1
	SizeUint8   = 1
	SizeInt16   = 2
	SizeUint16  = 2
	SizeInt32   = 4
	SizeUint32  = 4
	SizeInt64   = 8
	SizeUint64  = 8
	SizeFloat32 = 4
	SizeFloat64 = 8

	SizeSOffset = 4
	SizeUOffset = 4
	SizeVOffset = 2

	// VtableMetadataFields is the count of header slots (vtable size,
	// table size) that precede the per-field entries in a vtable.
	VtableMetadataFields = 2

	// MaxVoffsetFieldCount bounds the number of fields a vtable can
	// describe; derived from voffset's 15 usable bits (spec.md section 6).
	MaxVoffsetFieldCount = (1 << 15) - 3

	// FileIdentifierLength is the size, in bytes, of the optional file
	// identifier placed after the root uoffset.
	FileIdentifierLength = 4
)

// UOffsetMax is the largest representable UOffset. checkVectorCount
// refuses a vector whose element bytes would exceed it; tables and the
// overall buffer size are not checked against it.
const UOffsetMax UOffset = math.MaxUint32

// ConstructiveLimit is UOffsetMax/2, the signed conversion boundary. No
// builder code checks references against it.
const ConstructiveLimit = UOffsetMax / 2

var le = binary.LittleEndian

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

func padNeeded(cursor, size, additional int) int {
	// Amount of padding such that `size` is aligned once `additional`
	// more bytes are written on top of `cursor` bytes already placed.
	// Mirrors the two's-complement trick used by flatbuffers builders:
	// align the negative cursor so the result lands on a `size` boundary.
	if size <= 1 {
		return 0
	}
	return (-(cursor + additional)) & (size - 1)
}

func writeBool(dst []byte, v bool) {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
}

func readBool(src []byte) bool { return src[0] != 0 }

func writeInt8(dst []byte, v int8)   { dst[0] = byte(v) }
func readInt8(src []byte) int8       { return int8(src[0]) }
func writeUint8(dst []byte, v uint8) { dst[0] = v }
func readUint8(src []byte) uint8     { return src[0] }

func writeInt16(dst []byte, v int16)   { le.PutUint16(dst, uint16(v)) }
func readInt16(src []byte) int16       { return int16(le.Uint16(src)) }
func writeUint16(dst []byte, v uint16) { le.PutUint16(dst, v) }
func readUint16(src []byte) uint16     { return le.Uint16(src) }

func writeInt32(dst []byte, v int32)   { le.PutUint32(dst, uint32(v)) }
func readInt32(src []byte) int32       { return int32(le.Uint32(src)) }
func writeUint32(dst []byte, v uint32) { le.PutUint32(dst, v) }
func readUint32(src []byte) uint32     { return le.Uint32(src) }

func writeInt64(dst []byte, v int64)   { le.PutUint64(dst, uint64(v)) }
func readInt64(src []byte) int64       { return int64(le.Uint64(src)) }
func writeUint64(dst []byte, v uint64) { le.PutUint64(dst, v) }
func readUint64(src []byte) uint64     { return le.Uint64(src) }

func writeFloat32(dst []byte, v float32) { le.PutUint32(dst, math.Float32bits(v)) }
func readFloat32(src []byte) float32     { return math.Float32frombits(le.Uint32(src)) }

func writeFloat64(dst []byte, v float64) { le.PutUint64(dst, math.Float64bits(v)) }
func readFloat64(src []byte) float64     { return math.Float64frombits(le.Uint64(src)) }

func writeSOffset(dst []byte, v SOffset) { le.PutUint32(dst, uint32(v)) }
func readSOffset(src []byte) SOffset     { return SOffset(int32(le.Uint32(src))) }

func writeUOffset(dst []byte, v UOffset) { le.PutUint32(dst, uint32(v)) }
func readUOffset(src []byte) UOffset     { return UOffset(le.Uint32(src)) }

func writeVOffset(dst []byte, v VOffset) { le.PutUint16(dst, uint16(v)) }
func readVOffset(src []byte) VOffset     { return VOffset(le.Uint16(src)) }
