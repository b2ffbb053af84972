// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import "testing"

func TestPrintNestedTablesAndVectors(t *testing.T) {
	b := NewBuilder(0)

	name, err := b.CreateString("widget")
	if err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable (child): %v", err)
	}
	if err := b.TableAddOffset(0, name, 0); err != nil {
		t.Fatalf("TableAddOffset: %v", err)
	}
	child, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable (child): %v", err)
	}

	tags, err := b.CreateOffsetVector(nil)
	if err != nil {
		t.Fatalf("CreateOffsetVector(empty): %v", err)
	}

	if err := b.StartTable(2); err != nil {
		t.Fatalf("StartTable (outer): %v", err)
	}
	if err := b.TableAddOffset(0, child, 0); err != nil {
		t.Fatalf("TableAddOffset (child ref): %v", err)
	}
	if err := b.TableAddOffset(1, tags, 0); err != nil {
		t.Fatalf("TableAddOffset (tags): %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable (outer): %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	childTD := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "name", ID: 0, Kind: FieldString},
	}}
	outerTD := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "child", ID: 0, Kind: FieldTable, Table: childTD},
		{Name: "tags", ID: 1, Kind: FieldStringVector},
	}}

	if err := Verify(buf, "", outerTD); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	out, err := Print(buf, outerTD)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	want := `{"child":{"name":"widget"},"tags":[]}`
	if string(out) != want {
		t.Fatalf("Print = %s, want %s", out, want)
	}
}

func TestPrintEnumFallback(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.TableAddInt32(0, 1, -1); err != nil {
		t.Fatalf("TableAddInt32: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	enum := &EnumDescriptor{Name: "Color", Values: map[int64]string{0: "Red", 1: "Green"}}
	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "color", ID: 0, Kind: FieldScalar, Scalar: ScalarInt32, Enum: enum},
	}}
	out, err := Print(buf, td)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if want := `{"color":"Green"}`; string(out) != want {
		t.Fatalf("Print = %s, want %s", out, want)
	}

	// A value outside the enum's known members falls back to the integer.
	b2 := NewBuilder(0)
	if err := b2.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b2.TableAddInt32(0, 99, -1); err != nil {
		t.Fatalf("TableAddInt32: %v", err)
	}
	root2, err := b2.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf2, err := b2.FinishBuffer(root2, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}
	out2, err := Print(buf2, td)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if want := `{"color":99}`; string(out2) != want {
		t.Fatalf("Print (unknown enum value) = %s, want %s", out2, want)
	}
}

func TestPrintNilDescriptor(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(0); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}
	out, err := Print(buf, nil)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("Print(nil td) = %s, want {}", out)
	}
}
