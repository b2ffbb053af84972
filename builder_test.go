// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"bytes"
	"testing"
)

// S1: an empty table verifies, and a field never added reads back as
// absent (vtable slot zero).
func TestEmptyTable(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(0); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.CheckRequired(); err != nil {
		t.Fatalf("CheckRequired: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "x", ID: 0, Kind: FieldScalar, Scalar: ScalarInt32},
	}}
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	out, err := Print(buf, td)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("Print = %q, want {}", out)
	}
}

// S2: a field whose value equals its default is skipped entirely; only
// the non-default field occupies a vtable slot and table body bytes.
func TestScalarDefaultSkipped(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(2); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.TableAddInt32(0, 42, 42); err != nil {
		t.Fatalf("TableAddInt32(id=0): %v", err)
	}
	if err := b.TableAddInt32(1, 7, 0); err != nil {
		t.Fatalf("TableAddInt32(id=1): %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "a", ID: 0, Kind: FieldScalar, Scalar: ScalarInt32},
		{Name: "b", ID: 1, Kind: FieldScalar, Scalar: ScalarInt32},
	}}
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	out, err := Print(buf, td)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if string(out) != `{"b":7}` {
		t.Fatalf("Print = %s, want {\"b\":7}", out)
	}
}

// S3: a struct embedded in a table lands on its required alignment and
// the table's own front-pad is the minimal value achieving that.
func TestStructInTableAlignment(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	data := make([]byte, 12)
	for i := range data {
		data[i] = byte(i + 1)
	}
	if err := b.TableAddCopy(0, data, 8); err != nil {
		t.Fatalf("TableAddCopy: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "s", ID: 0, Kind: FieldStruct, Size: 12, Align: 8},
	}}
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Resolve the field manually: table -> vtable -> slot -> struct bytes.
	rootPos := int(readUint32(buf[0:4]))
	so := readSOffset(buf[rootPos : rootPos+4])
	vtableBase := rootPos - int(so)
	vtableSize := int(readVOffset(buf[vtableBase : vtableBase+2]))
	slot := fieldSlotValue(buf, vtableBase, vtableSize, 0)
	if slot == 0 {
		t.Fatalf("struct field missing from vtable")
	}
	fieldPos := rootPos + int(slot)
	if fieldPos%8 != 0 {
		t.Fatalf("struct field at %d is not 8-aligned", fieldPos)
	}
	if !bytes.Equal(buf[fieldPos:fieldPos+12], data) {
		t.Fatalf("struct bytes = %v, want %v", buf[fieldPos:fieldPos+12], data)
	}
}

// S4: two tables with identical field layouts share one vtable when
// clustering is enabled: both tables' soffsets resolve to the same
// vtable address, and both tables still verify.
func TestVtableSharing(t *testing.T) {
	b := NewBuilder(0)

	buildOne := func(v int32) Ref {
		if err := b.StartTable(1); err != nil {
			t.Fatalf("StartTable: %v", err)
		}
		if err := b.TableAddInt32(0, v, 0); err != nil {
			t.Fatalf("TableAddInt32: %v", err)
		}
		ref, err := b.EndTable()
		if err != nil {
			t.Fatalf("EndTable: %v", err)
		}
		return ref
	}

	first := buildOne(11)
	second := buildOne(22)

	// Wrap both tables as roots of a single offset-vector so both vtable
	// references survive into the same finished buffer.
	vec, err := b.CreateOffsetVector([]Ref{first, second})
	if err != nil {
		t.Fatalf("CreateOffsetVector: %v", err)
	}
	buf, err := b.FinishBuffer(vec, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	// Walk the vector to each table and compare their vtable addresses.
	vecPos := int(readUint32(buf[0:4]))
	count := int(readUint32(buf[vecPos : vecPos+4]))
	if count != 2 {
		t.Fatalf("vector count = %d, want 2", count)
	}
	tablePos := func(i int) int {
		elemPos := vecPos + 4 + i*4
		o := int(readUint32(buf[elemPos : elemPos+4]))
		return elemPos + o
	}
	vtableAddrOf := func(pos int) int {
		so := readSOffset(buf[pos : pos+4])
		return pos - int(so)
	}
	p0, p1 := tablePos(0), tablePos(1)
	if vtableAddrOf(p0) != vtableAddrOf(p1) {
		t.Fatalf("tables do not share a vtable: %d vs %d", vtableAddrOf(p0), vtableAddrOf(p1))
	}

	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "v", ID: 0, Kind: FieldScalar, Scalar: ScalarInt32},
	}}
	v := NewVerifier(buf, 0)
	if err := v.verifyTable(p0, td, DefaultMaxDepth); err != nil {
		t.Fatalf("verify table 0: %v", err)
	}
	if err := v.verifyTable(p1, td, DefaultMaxDepth); err != nil {
		t.Fatalf("verify table 1: %v", err)
	}
}

// S5: an offset-vector of strings relocates every element so that
// pos + stored_value lands exactly on the target string's length prefix.
func TestOffsetVectorForwardReference(t *testing.T) {
	b := NewBuilder(0)
	sa, err := b.CreateString("a")
	if err != nil {
		t.Fatalf("CreateString(a): %v", err)
	}
	sb, err := b.CreateString("bb")
	if err != nil {
		t.Fatalf("CreateString(bb): %v", err)
	}
	sc, err := b.CreateString("ccc")
	if err != nil {
		t.Fatalf("CreateString(ccc): %v", err)
	}
	vec, err := b.CreateOffsetVector([]Ref{sa, sb, sc})
	if err != nil {
		t.Fatalf("CreateOffsetVector: %v", err)
	}
	buf, err := b.FinishBuffer(vec, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	vecPos := int(readUint32(buf[0:4]))
	count := int(readUint32(buf[vecPos : vecPos+4]))
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	want := []string{"a", "bb", "ccc"}
	for i, w := range want {
		elemPos := vecPos + 4 + i*4
		o := int(readUint32(buf[elemPos : elemPos+4]))
		target := elemPos + o
		length := int(readUint32(buf[target : target+4]))
		if length != len(w) {
			t.Fatalf("element %d length = %d, want %d", i, length, len(w))
		}
		got := string(buf[target+4 : target+4+length])
		if got != w {
			t.Fatalf("element %d = %q, want %q", i, got, w)
		}
		if buf[target+4+length] != 0 {
			t.Fatalf("element %d missing nul terminator", i)
		}
	}
}

// A table emitted right after a string whose trailer leaves the sink's
// front edge at a non-8-aligned residue must still place an 8-aligned
// field (and the table's own start) on an 8-byte boundary.
func TestTableAlignmentAfterOddString(t *testing.T) {
	b := NewBuilder(0)
	// "abcde" (5 bytes + nul terminator = 6-byte body) leaves the front
	// edge at -12, offset by 4 from a multiple of 8, once the 2-byte pad
	// and the 4-byte length prefix are included, on a from-zero origin.
	if _, err := b.CreateString("abcde"); err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.TableAddFloat64(0, 3.5, 0); err != nil {
		t.Fatalf("TableAddFloat64: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	td := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "v", ID: 0, Kind: FieldScalar, Scalar: ScalarFloat64},
	}}
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	out, err := Print(buf, td)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if string(out) != `{"v":3.5}` {
		t.Fatalf("Print = %s, want {\"v\":3.5}", out)
	}
}

// An int64 vector built after an odd-length string must front-pad so its
// first element, not just its length prefix, lands 8-aligned.
func TestVectorElementAlignmentAfterOddString(t *testing.T) {
	b := NewBuilder(0)
	if _, err := b.CreateString("abcde"); err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	if err := b.StartVector(SizeInt64, SizeInt64, 0); err != nil {
		t.Fatalf("StartVector: %v", err)
	}
	var elem [8]byte
	writeInt64(elem[:], 123456789)
	if err := b.VectorPush(elem[:]); err != nil {
		t.Fatalf("VectorPush: %v", err)
	}
	vec, err := b.EndVector()
	if err != nil {
		t.Fatalf("EndVector: %v", err)
	}
	buf, err := b.FinishBuffer(vec, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	vecPos := int(readUint32(buf[0:4]))
	firstElem := vecPos + SizeUOffset
	if firstElem%8 != 0 {
		t.Fatalf("first element at %d is not 8-aligned", firstElem)
	}
	if got := readInt64(buf[firstElem:]); got != 123456789 {
		t.Fatalf("first element = %d, want 123456789", got)
	}
}

func TestCheckRequiredAbsent(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.CheckRequired(0); err != ErrRequiredFieldAbsent {
		t.Fatalf("CheckRequired = %v, want ErrRequiredFieldAbsent", err)
	}
	if err := b.TableAddInt32(0, 5, 0); err != nil {
		t.Fatalf("TableAddInt32: %v", err)
	}
	if err := b.CheckRequired(0); err != nil {
		t.Fatalf("CheckRequired after add = %v, want nil", err)
	}
	if _, err := b.EndTable(); err != nil {
		t.Fatalf("EndTable: %v", err)
	}
}

func TestResetReusesBuilder(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(0); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	if _, err := b.FinishBuffer(root, ""); err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}

	b.Reset()

	if err := b.StartTable(0); err != nil {
		t.Fatalf("StartTable after Reset: %v", err)
	}
	root2, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable after Reset: %v", err)
	}
	buf, err := b.FinishBuffer(root2, "")
	if err != nil {
		t.Fatalf("FinishBuffer after Reset: %v", err)
	}
	if err := Verify(buf, "", &TableDescriptor{}); err != nil {
		t.Fatalf("Verify after Reset: %v", err)
	}
}

func TestFinishBufferWithIdentifier(t *testing.T) {
	b := NewBuilder(0)
	if err := b.StartTable(0); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err := b.FinishBuffer(root, "ABCD")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}
	if err := Verify(buf, "ABCD", &TableDescriptor{}); err != nil {
		t.Fatalf("Verify with matching fid: %v", err)
	}
	if err := Verify(buf, "WXYZ", &TableDescriptor{}); !IsKind(err, KindIdentifierMismatch) {
		t.Fatalf("Verify with mismatched fid = %v, want identifier_mismatch", err)
	}
}
