// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package idl

// Schema is the parsed form of one IDL file.
type Schema struct {
	Namespace      string
	FileIdentifier string
	RootType       string
	Tables         []*Table
	Structs        []*Struct
	Enums          []*Enum
	Unions         []*Union
}

// Table is a parsed `table` declaration.
type Table struct {
	Name   string
	Fields []Field
}

// Struct is a parsed `struct` declaration: fixed layout, no offset fields.
type Struct struct {
	Name   string
	Fields []Field
}

// Field is one member of a table or struct.
type Field struct {
	Name     string
	Type     TypeRef
	Default  string
	Required bool
}

// TypeKind classifies a field's base type.
type TypeKind int

const (
	TypeScalar TypeKind = iota
	TypeBool
	TypeString
	TypeNamed // a table, struct, enum, or union by name
)

// TypeRef describes a field's type: a scalar keyword, "string", or a
// named table/struct/enum/union, optionally wrapped in a vector.
type TypeRef struct {
	Kind     TypeKind
	Scalar   string // flatbuffers scalar keyword, e.g. "int32", when Kind == TypeScalar
	Name     string // referenced type name, when Kind == TypeNamed
	IsVector bool
}

// Enum is a parsed `enum` declaration.
type Enum struct {
	Name     string
	BaseType string
	Values   []EnumValue
}

// EnumValue is one member of an enum.
type EnumValue struct {
	Name  string
	Value int64
}

// Union is a parsed `union` declaration: a list of alternative table
// names, implicitly numbered 1, 2, 3... with 0 reserved for NONE.
type Union struct {
	Name    string
	Members []string
}
