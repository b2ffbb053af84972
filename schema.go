// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

// FieldKind classifies what a table field holds, driving both the
// verifier's per-field checks and the JSON printer's rendering.
type FieldKind uint8

const (
	FieldScalar FieldKind = iota
	FieldBool
	FieldString
	FieldStruct
	FieldTable
	FieldScalarVector
	FieldStringVector
	FieldTableVector
	FieldStructVector
	FieldUnion
	FieldNestedBuffer
)

// ScalarType names a scalar wire type, used by FieldDescriptor.Scalar and
// the JSON printer to pick the right reader.
type ScalarType uint8

const (
	ScalarInt8 ScalarType = iota
	ScalarUint8
	ScalarInt16
	ScalarUint16
	ScalarInt32
	ScalarUint32
	ScalarInt64
	ScalarUint64
	ScalarFloat32
	ScalarFloat64
)

func (s ScalarType) size() int {
	switch s {
	case ScalarInt8, ScalarUint8:
		return 1
	case ScalarInt16, ScalarUint16:
		return 2
	case ScalarInt32, ScalarUint32, ScalarFloat32:
		return 4
	default:
		return 8
	}
}

// FieldDescriptor describes one table field for the verifier and printer:
// its wire id, kind, size/alignment (for scalars, structs and vectors),
// whether it's schema-required, and (for tables/unions) the descriptor(s)
// of what it points at.
type FieldDescriptor struct {
	Name     string
	ID       VOffset
	Kind     FieldKind
	Scalar   ScalarType
	Size     int // struct size, in bytes, for FieldStruct/FieldStructVector
	Align    int // struct alignment, for FieldStruct/FieldStructVector
	Required bool

	// Enum, for a FieldScalar backed by a schema enum, makes the JSON
	// printer render the matching symbolic name instead of the raw
	// integer; nil means print the integer (spec.md's default).
	Enum *EnumDescriptor

	// Table points at the descriptor for FieldTable / FieldTableVector /
	// FieldNestedBuffer elements.
	Table *TableDescriptor

	// Union, for FieldUnion, maps a wire type byte to the table descriptor
	// verifying/printing that alternative; entry 0 is conventionally NONE
	// and has a nil Table.
	Union map[uint8]*UnionAlternative
}

// UnionAlternative names one member of a union's type enum.
type UnionAlternative struct {
	Name  string
	Table *TableDescriptor // nil: the verifier checks the value as a string
}

// EnumDescriptor names the values of a schema enum, used by the JSON
// printer to render a symbolic name instead of a raw integer, falling
// back to the integer when a value isn't recognized.
type EnumDescriptor struct {
	Name   string
	Values map[int64]string
}

// TableDescriptor is the generated-code stand-in this package takes as
// input: enough information to verify and print one table type without
// needing compiled accessor methods. The schema compiler under
// internal/idl is what would normally emit these from an IDL file.
type TableDescriptor struct {
	Name   string
	Fields []FieldDescriptor
}

// StructDescriptor describes a fixed-layout struct root.
type StructDescriptor struct {
	Name  string
	Size  int
	Align int
}
