// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"context"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds verifier recursion when a caller doesn't specify
// one explicitly (spec.md section 4.11, point 8).
const DefaultMaxDepth = 64

// Verifier is a read-only, bounds-and-alignment validator over a single
// byte slice. It never mutates buf and is safe to run concurrently with
// other Verifiers over disjoint slices (spec.md section 5).
type Verifier struct {
	buf      []byte
	maxDepth int
}

// NewVerifier wraps buf for verification. maxDepth <= 0 selects
// DefaultMaxDepth.
func NewVerifier(buf []byte, maxDepth int) *Verifier {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Verifier{buf: buf, maxDepth: maxDepth}
}

// Verify is the common convenience entry point: it verifies buf as a
// root table against td, checking fid if non-empty.
func Verify(buf []byte, fid string, td *TableDescriptor) error {
	return NewVerifier(buf, 0).VerifyTableAsRoot(fid, td)
}

// VerifyMMap is Verify over a memory-mapped region, for callers reading a
// buffer straight out of an MMapSink-backed file without copying it.
func VerifyMMap(data mmap.MMap, fid string, td *TableDescriptor) error {
	return Verify([]byte(data), fid, td)
}

// VerifyConcurrent verifies every buffer in bufs against the same fid and
// td in parallel and returns the first error encountered. ctx does not
// reach Verify, so every verification runs to completion even after one
// has failed. Each buffer is independent, so this is purely a throughput
// convenience.
func VerifyConcurrent(ctx context.Context, bufs [][]byte, fid string, td *TableDescriptor) error {
	g, _ := errgroup.WithContext(ctx)
	for _, buf := range bufs {
		buf := buf
		g.Go(func() error {
			return Verify(buf, fid, td)
		})
	}
	return g.Wait()
}

func (v *Verifier) checkRange(pos, size int) error {
	if pos < 0 || size < 0 || pos+size > len(v.buf) || pos+size < pos {
		return verifyErr(KindSizeOutOfRange, pos, "")
	}
	return nil
}

func (v *Verifier) checkAlign(pos, align int) error {
	if align > 1 && pos%align != 0 {
		return verifyErr(KindAlignment, pos, "")
	}
	return nil
}

// resolveOffset reads the uoffset stored at fieldPos and returns the
// absolute position it refers to. A stored value of 0, or one whose
// target lies past the end of buf, is reported as offset_out_of_range;
// the same check serves field offsets, vector elements and the header's
// root uoffset.
func (v *Verifier) resolveOffset(fieldPos int) (target int, err error) {
	if err := v.checkRange(fieldPos, SizeUOffset); err != nil {
		return 0, err
	}
	o := readUint32(v.buf[fieldPos : fieldPos+SizeUOffset])
	target = fieldPos + int(o)
	if target <= fieldPos {
		return 0, verifyErr(KindOffsetOutOfRange, fieldPos, "")
	}
	if target > len(v.buf) {
		return 0, verifyErr(KindOffsetOutOfRange, fieldPos, "")
	}
	return target, nil
}

// VerifyTableAsRoot verifies buf[0:] as a root table: the root uoffset at
// position 0, and optionally the 4-byte identifier following it.
func (v *Verifier) VerifyTableAsRoot(fid string, td *TableDescriptor) error {
	minHeader := SizeUOffset
	if fid != "" {
		minHeader += FileIdentifierLength
	}
	if err := v.checkRange(0, minHeader); err != nil {
		return verifyErr(KindBadHeader, 0, "")
	}
	if fid != "" {
		if string(v.buf[SizeUOffset:SizeUOffset+FileIdentifierLength]) != padIdentifier(fid) {
			return verifyErr(KindIdentifierMismatch, SizeUOffset, "")
		}
	}
	root, err := v.resolveOffset(0)
	if err != nil {
		return err
	}
	return v.verifyTable(root, td, v.maxDepth)
}

func padIdentifier(fid string) string {
	if len(fid) >= FileIdentifierLength {
		return fid[:FileIdentifierLength]
	}
	buf := make([]byte, FileIdentifierLength)
	copy(buf, fid)
	return string(buf)
}

// VerifyStructAsRoot verifies buf as a bare struct root of size bytes
// aligned to align; structs have no internal offsets to chase.
func (v *Verifier) VerifyStructAsRoot(align, size int) error {
	if err := v.checkRange(0, size); err != nil {
		return verifyErr(KindSizeOutOfRange, 0, "")
	}
	return v.checkAlign(0, align)
}

// VerifyTableAsNestedRoot verifies the nested buffer whose 4-byte length
// prefix starts at vectorStart (i.e. the already-resolved position of a
// FieldNestedBuffer's byte-vector field) as an independent root table.
func (v *Verifier) VerifyTableAsNestedRoot(vectorStart int, fid string, td *TableDescriptor, required bool) error {
	if vectorStart == 0 {
		if required {
			return verifyErr(KindRequiredFieldAbsent, 0, "")
		}
		return nil
	}
	if err := v.checkRange(vectorStart, SizeUOffset); err != nil {
		return err
	}
	nestedLen := int(readUint32(v.buf[vectorStart : vectorStart+SizeUOffset]))
	base := vectorStart + SizeUOffset
	if err := v.checkRange(base, nestedLen); err != nil {
		return err
	}
	sub := NewVerifier(v.buf[base:base+nestedLen], v.maxDepth)
	return sub.VerifyTableAsRoot(fid, td)
}

// vtableOf resolves and validates the vtable for a table at pos, per
// spec.md section 4.11 point 4, returning its base position and size
// along with the table's own declared byte size.
func (v *Verifier) vtableOf(pos int) (vtableBase, vtableSize, tableSize int, err error) {
	if err = v.checkRange(pos, SizeSOffset); err != nil {
		return
	}
	so := readSOffset(v.buf[pos : pos+SizeSOffset])
	vtableBase = pos - int(so)
	if err = v.checkAlign(vtableBase, SizeVOffset); err != nil {
		err = verifyErr(KindVtableOffset, pos, "")
		return
	}
	if err = v.checkRange(vtableBase, VtableMetadataFields*SizeVOffset); err != nil {
		err = verifyErr(KindVtableOffset, pos, "")
		return
	}
	vtableSize = int(readVOffset(v.buf[vtableBase : vtableBase+SizeVOffset]))
	if vtableSize < VtableMetadataFields*SizeVOffset || vtableSize%SizeVOffset != 0 {
		err = verifyErr(KindVtableSize, vtableBase, "")
		return
	}
	if rerr := v.checkRange(vtableBase, vtableSize); rerr != nil {
		err = verifyErr(KindVtableSize, vtableBase, "")
		return
	}
	tableSize = int(readVOffset(v.buf[vtableBase+SizeVOffset : vtableBase+2*SizeVOffset]))
	if rerr := v.checkRange(pos, tableSize); rerr != nil {
		err = verifyErr(KindTableSize, pos, "")
		return
	}
	return vtableBase, vtableSize, tableSize, nil
}

// fieldSlotValue returns the byte offset stored in the vtable for id, or 0 if
// id falls outside the vtable's declared field range.
func fieldSlotValue(buf []byte, vtableBase, vtableSize int, id VOffset) VOffset {
	slotByteOff := (VtableMetadataFields + int(id)) * SizeVOffset
	if slotByteOff+SizeVOffset > vtableSize {
		return 0
	}
	return readVOffset(buf[vtableBase+slotByteOff : vtableBase+slotByteOff+SizeVOffset])
}

func (v *Verifier) verifyTable(pos int, td *TableDescriptor, ttl int) error {
	if ttl <= 0 {
		return verifyErr(KindMaxDepthExceeded, pos, "")
	}
	vtableBase, vtableSize, tableSize, err := v.vtableOf(pos)
	if err != nil {
		return err
	}
	if td == nil {
		return nil
	}
	for _, field := range td.Fields {
		slot := fieldSlotValue(v.buf, vtableBase, vtableSize, field.ID)
		if field.Kind == FieldUnion {
			if err := v.verifyUnionField(pos, vtableBase, vtableSize, tableSize, field, ttl); err != nil {
				return err
			}
			continue
		}
		if slot == 0 {
			if field.Required {
				return verifyErr(KindRequiredFieldAbsent, pos, field.Name)
			}
			continue
		}
		fieldPos := pos + int(slot)
		if err := v.verifyFieldValue(fieldPos, pos, tableSize, field, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) verifyFieldValue(fieldPos, tablePos, tableSize int, field FieldDescriptor, ttl int) error {
	inTable := func(size int) error {
		if fieldPos+size > tablePos+tableSize {
			return verifyErr(KindTableFieldOutOfRange, fieldPos, field.Name)
		}
		return nil
	}
	switch field.Kind {
	case FieldScalar:
		size := field.Scalar.size()
		if err := inTable(size); err != nil {
			return err
		}
		return v.checkAlign(fieldPos, size)
	case FieldBool:
		return inTable(SizeBool)
	case FieldStruct:
		if err := inTable(field.Size); err != nil {
			return err
		}
		return v.checkAlign(fieldPos, field.Align)
	case FieldString:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return v.verifyString(target)
	case FieldTable:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return v.verifyTable(target, field.Table, ttl-1)
	case FieldNestedBuffer:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return v.VerifyTableAsNestedRoot(target, "", field.Table, field.Required)
	case FieldScalarVector, FieldStructVector:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		elemSize, elemAlign := field.Size, field.Align
		if field.Kind == FieldScalarVector {
			elemSize = field.Scalar.size()
			elemAlign = elemSize
		}
		_, _, err = v.verifyVectorHeader(target, elemSize, elemAlign)
		return err
	case FieldStringVector:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		count, first, err := v.verifyVectorHeader(target, SizeUOffset, SizeUOffset)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			elemPos := first + i*SizeUOffset
			strPos, err := v.resolveOffset(elemPos)
			if err != nil {
				return err
			}
			if err := v.verifyString(strPos); err != nil {
				return err
			}
		}
		return nil
	case FieldTableVector:
		target, err := v.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		count, first, err := v.verifyVectorHeader(target, SizeUOffset, SizeUOffset)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			elemPos := first + i*SizeUOffset
			childPos, err := v.resolveOffset(elemPos)
			if err != nil {
				return err
			}
			if err := v.verifyTable(childPos, field.Table, ttl-1); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (v *Verifier) verifyString(pos int) error {
	if err := v.checkRange(pos, SizeUOffset); err != nil {
		return err
	}
	if err := v.checkAlign(pos, SizeUOffset); err != nil {
		return err
	}
	length := int(readUint32(v.buf[pos : pos+SizeUOffset]))
	end := pos + SizeUOffset + length
	if err := v.checkRange(end, 1); err != nil {
		return verifyErr(KindStringUnterminated, pos, "")
	}
	if v.buf[end] != 0 {
		return verifyErr(KindStringUnterminated, pos, "")
	}
	return nil
}

func (v *Verifier) verifyVectorHeader(pos, elemSize, elemAlign int) (count, first int, err error) {
	if err = v.checkRange(pos, SizeUOffset); err != nil {
		return
	}
	count = int(readUint32(v.buf[pos : pos+SizeUOffset]))
	first = pos + SizeUOffset
	if elemSize > 0 {
		remaining := len(v.buf) - first
		if remaining < 0 {
			err = verifyErr(KindVectorOutOfRange, pos, "")
			return
		}
		maxCount := remaining / elemSize
		if count > maxCount {
			err = verifyErr(KindVectorCountOverflow, pos, "")
			return
		}
	}
	if aerr := v.checkAlign(first, elemAlign); aerr != nil {
		err = aerr
		return
	}
	return count, first, nil
}

func (v *Verifier) verifyUnionField(pos, vtableBase, vtableSize, tableSize int, field FieldDescriptor, ttl int) error {
	if field.ID == 0 {
		return nil
	}
	typeSlot := fieldSlotValue(v.buf, vtableBase, vtableSize, field.ID-1)
	valueSlot := fieldSlotValue(v.buf, vtableBase, vtableSize, field.ID)

	var typeVal uint8
	if typeSlot != 0 {
		typePos := pos + int(typeSlot)
		if err := v.checkRange(typePos, SizeUint8); err != nil {
			return err
		}
		typeVal = v.buf[typePos]
	}

	if typeVal == 0 {
		if valueSlot != 0 {
			return verifyErr(KindUnionNoneWithValue, pos, field.Name)
		}
		if field.Required {
			return verifyErr(KindRequiredFieldAbsent, pos, field.Name)
		}
		return nil
	}

	alt, ok := field.Union[typeVal]
	if !ok {
		return verifyErr(KindUnionTypeUnknown, pos, field.Name)
	}
	if valueSlot == 0 {
		return verifyErr(KindUnionMissingValue, pos, field.Name)
	}
	fieldPos := pos + int(valueSlot)
	target, err := v.resolveOffset(fieldPos)
	if err != nil {
		return err
	}
	if alt.Table != nil {
		return v.verifyTable(target, alt.Table, ttl-1)
	}
	return v.verifyString(target)
}
