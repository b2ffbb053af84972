// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import "testing"

func buildStringTable(t *testing.T) (buf []byte, fieldID VOffset) {
	t.Helper()
	b := NewBuilder(0)
	// Seven bytes plus the terminator fill the string body exactly, so no
	// zero pad byte follows it.
	s, err := b.CreateString("hello!!")
	if err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	if err := b.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := b.TableAddOffset(0, s, 0); err != nil {
		t.Fatalf("TableAddOffset: %v", err)
	}
	root, err := b.EndTable()
	if err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	buf, err = b.FinishBuffer(root, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}
	return buf, 0
}

func stringDescriptor(id VOffset, required bool) *TableDescriptor {
	return &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "s", ID: id, Kind: FieldString, Required: required},
	}}
}

// S6: overwriting a string's length prefix to claim one byte more than
// is actually present makes the terminator check fail.
func TestVerifierRejectsOverlongString(t *testing.T) {
	buf, id := buildStringTable(t)
	td := stringDescriptor(id, false)
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify on valid buffer: %v", err)
	}

	rootPos := int(readUint32(buf[0:4]))
	so := readSOffset(buf[rootPos : rootPos+4])
	vtableBase := rootPos - int(so)
	vtableSize := int(readVOffset(buf[vtableBase : vtableBase+2]))
	slot := fieldSlotValue(buf, vtableBase, vtableSize, id)
	fieldPos := rootPos + int(slot)
	strPos := fieldPos + int(readUint32(buf[fieldPos:fieldPos+4]))

	length := readUint32(buf[strPos : strPos+4])
	writeUint32(buf[strPos:strPos+4], length+1)

	err := Verify(buf, "", td)
	if !IsKind(err, KindStringUnterminated) {
		t.Fatalf("Verify on corrupted buffer = %v, want string_unterminated", err)
	}
}

// S7: patching a uoffset to an odd value trips the alignment check on
// the field it addresses.
func TestVerifierRejectsMisalignedOffset(t *testing.T) {
	buf, id := buildStringTable(t)
	td := stringDescriptor(id, false)
	if err := Verify(buf, "", td); err != nil {
		t.Fatalf("Verify on valid buffer: %v", err)
	}

	rootPos := int(readUint32(buf[0:4]))
	so := readSOffset(buf[rootPos : rootPos+4])
	vtableBase := rootPos - int(so)
	vtableSize := int(readVOffset(buf[vtableBase : vtableBase+2]))
	slot := fieldSlotValue(buf, vtableBase, vtableSize, id)
	fieldPos := rootPos + int(slot)

	o := readUint32(buf[fieldPos : fieldPos+4])
	writeUint32(buf[fieldPos:fieldPos+4], o+1)

	err := Verify(buf, "", td)
	if err == nil {
		t.Fatalf("Verify on misaligned offset succeeded, want an error")
	}
	// The corrupted target is one byte past the string's 4-aligned length
	// prefix, so verifyString's alignment check rejects it.
	if !IsKind(err, KindAlignment) {
		t.Fatalf("Verify on misaligned offset = %v, want alignment", err)
	}
}

// S8: a union field that is absent, explicitly NONE, or present with a
// known type all verify; marking the field required promotes the first
// two to required_field_absent.
func TestUnionAbsentNoneAndPresent(t *testing.T) {
	payloadTD := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "v", ID: 0, Kind: FieldScalar, Scalar: ScalarInt32},
	}}
	union := map[uint8]*UnionAlternative{
		1: {Name: "Payload", Table: payloadTD},
	}

	buildUnionTable := func(writeType, writeValue bool, typeVal uint8, childRef Ref) []byte {
		b := NewBuilder(0)
		if err := b.StartTable(2); err != nil {
			t.Fatalf("StartTable: %v", err)
		}
		if writeType {
			// Default 0xFF, so a typeVal of 0 (NONE) is still written.
			if err := b.TableAddUint8(0, typeVal, 0xFF); err != nil {
				t.Fatalf("TableAddUint8: %v", err)
			}
		}
		if writeValue {
			if err := b.TableAddOffset(1, childRef, 0); err != nil {
				t.Fatalf("TableAddOffset: %v", err)
			}
		}
		root, err := b.EndTable()
		if err != nil {
			t.Fatalf("EndTable: %v", err)
		}
		buf, err := b.FinishBuffer(root, "")
		if err != nil {
			t.Fatalf("FinishBuffer: %v", err)
		}
		return buf
	}

	// The type discriminator (field id-1) is read directly out of the
	// vtable by verifyUnionField and never needs its own FieldDescriptor;
	// only the FieldUnion entry at id is declared.

	// (a) no union at all.
	bufAbsent := buildUnionTable(false, false, 0, 0)
	tdNotRequired := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "value", ID: 1, Kind: FieldUnion, Union: union},
	}}
	if err := Verify(bufAbsent, "", tdNotRequired); err != nil {
		t.Fatalf("(a) not required: %v", err)
	}
	tdRequired := &TableDescriptor{Fields: []FieldDescriptor{
		{Name: "value", ID: 1, Kind: FieldUnion, Required: true, Union: union},
	}}
	if err := Verify(bufAbsent, "", tdRequired); !IsKind(err, KindRequiredFieldAbsent) {
		t.Fatalf("(a) required = %v, want required_field_absent", err)
	}

	// (b) type explicitly written as NONE (0), value absent.
	bufNone := buildUnionTable(true, false, 0, 0)
	if err := Verify(bufNone, "", tdNotRequired); err != nil {
		t.Fatalf("(b) not required: %v", err)
	}
	if err := Verify(bufNone, "", tdRequired); !IsKind(err, KindRequiredFieldAbsent) {
		t.Fatalf("(b) required = %v, want required_field_absent", err)
	}

	// (c) type known, value present.
	bc := NewBuilder(0)
	if err := bc.StartTable(1); err != nil {
		t.Fatalf("StartTable: %v", err)
	}
	if err := bc.TableAddInt32(0, 99, 0); err != nil {
		t.Fatalf("TableAddInt32: %v", err)
	}
	childRoot, err := bc.EndTable()
	if err != nil {
		t.Fatalf("EndTable (child): %v", err)
	}

	if err := bc.StartTable(2); err != nil {
		t.Fatalf("StartTable (outer): %v", err)
	}
	if err := bc.TableAddUint8(0, 1, 0); err != nil {
		t.Fatalf("TableAddUint8: %v", err)
	}
	if err := bc.TableAddOffset(1, childRoot, 0); err != nil {
		t.Fatalf("TableAddOffset: %v", err)
	}
	outerRoot, err := bc.EndTable()
	if err != nil {
		t.Fatalf("EndTable (outer): %v", err)
	}
	bufPresent, err := bc.FinishBuffer(outerRoot, "")
	if err != nil {
		t.Fatalf("FinishBuffer: %v", err)
	}
	if err := Verify(bufPresent, "", tdRequired); err != nil {
		t.Fatalf("(c) present: %v", err)
	}
}

func TestMaxDepthExceeded(t *testing.T) {
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

	v := NewVerifier(buf, 1)
	rootPos := int(readUint32(buf[0:4]))
	if err := v.verifyTable(rootPos, nil, 0); !IsKind(err, KindMaxDepthExceeded) {
		t.Fatalf("verifyTable with ttl=0 = %v, want max_depth_exceeded", err)
	}
}
