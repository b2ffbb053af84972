// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package idl

import (
	"fmt"
	"strings"

	"golang.org/x/tools/imports"
)

var scalarGoType = map[string]string{
	"int8": "ScalarInt8", "byte": "ScalarInt8",
	"uint8": "ScalarUint8", "ubyte": "ScalarUint8",
	"int16": "ScalarInt16", "short": "ScalarInt16",
	"uint16": "ScalarUint16", "ushort": "ScalarUint16",
	"int32": "ScalarInt32", "int": "ScalarInt32",
	"uint32": "ScalarUint32", "uint": "ScalarUint32",
	"int64": "ScalarInt64", "long": "ScalarInt64",
	"uint64": "ScalarUint64", "ulong": "ScalarUint64",
	"float32": "ScalarFloat32", "float": "ScalarFloat32",
	"float64": "ScalarFloat64", "double": "ScalarFloat64",
}

// Generate emits Go source declaring one *flatforge.TableDescriptor
// package-level variable per table in s, named "<Table>Descriptor", in
// Go package pkg. The output is gofmt'd and import-resolved via
// golang.org/x/tools/imports before being returned.
func Generate(pkg string, s *Schema) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by flatforgec. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	fmt.Fprintf(&b, "import \"github.com/flatforge/flatforge\"\n\n")

	byName := map[string]*Table{}
	for _, t := range s.Tables {
		byName[t.Name] = t
	}
	unionByName := map[string]*Union{}
	for _, u := range s.Unions {
		unionByName[u.Name] = u
	}

	// Forward-declare every descriptor variable so mutually and
	// self-referential table graphs (a tree node pointing at itself, two
	// tables pointing at each other) resolve without ordering tricks.
	for _, t := range s.Tables {
		fmt.Fprintf(&b, "var %sDescriptor = &flatforge.TableDescriptor{Name: %q}\n", t.Name, t.Name)
	}
	b.WriteString("\nfunc init() {\n")
	for _, t := range s.Tables {
		writeTableInit(&b, t, byName, unionByName)
	}
	b.WriteString("}\n")

	src := b.String()
	formatted, err := imports.Process("generated.go", []byte(src), nil)
	if err != nil {
		return []byte(src), err
	}
	return formatted, nil
}

func writeTableInit(b *strings.Builder, t *Table, tables map[string]*Table, unions map[string]*Union) {
	fmt.Fprintf(b, "\t%sDescriptor.Fields = []flatforge.FieldDescriptor{\n", t.Name)
	for i, f := range t.Fields {
		writeFieldInit(b, i, f, tables, unions)
	}
	fmt.Fprintf(b, "\t}\n")
}

func writeFieldInit(b *strings.Builder, id int, f Field, tables map[string]*Table, unions map[string]*Union) {
	required := "false"
	if f.Required {
		required = "true"
	}
	switch {
	case f.Type.Kind == TypeBool:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldBool, Required: %s},\n", f.Name, id, required)
	case f.Type.Kind == TypeString && f.Type.IsVector:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldStringVector, Required: %s},\n", f.Name, id, required)
	case f.Type.Kind == TypeString:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldString, Required: %s},\n", f.Name, id, required)
	case f.Type.Kind == TypeScalar && f.Type.IsVector:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldScalarVector, Scalar: flatforge.%s, Required: %s},\n",
			f.Name, id, scalarGoType[f.Type.Scalar], required)
	case f.Type.Kind == TypeScalar:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldScalar, Scalar: flatforge.%s, Required: %s},\n",
			f.Name, id, scalarGoType[f.Type.Scalar], required)
	case f.Type.Kind == TypeNamed && f.Type.IsVector && tables[f.Type.Name] != nil:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldTableVector, Table: %sDescriptor, Required: %s},\n",
			f.Name, id, f.Type.Name, required)
	case f.Type.Kind == TypeNamed && tables[f.Type.Name] != nil:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldTable, Table: %sDescriptor, Required: %s},\n",
			f.Name, id, f.Type.Name, required)
	case f.Type.Kind == TypeNamed && unions[f.Type.Name] != nil:
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldUnion, Required: %s}, // union %s: generate a type+members switch by hand\n",
			f.Name, id, required, f.Type.Name)
	default:
		// Struct-typed or enum-typed field: treated as an inline scalar-
		// sized blob until a member-level descriptor is hand-written.
		fmt.Fprintf(b, "\t\t{Name: %q, ID: %d, Kind: flatforge.FieldStruct, Required: %s}, // TODO: size/align for %s\n",
			f.Name, id, required, f.Type.Name)
	}
}
