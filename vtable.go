// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

// patchEntry records one not-yet-relative uoffset field: the table's
// frame-relative field offset, and the absolute position (as returned by
// the emission sink) that field must eventually point at. Patching is
// deferred to end_table because the field's own absolute address isn't
// known until the whole table body has been handed to the sink.
type patchEntry struct {
	relOffset int
	absTarget int64
}

// tableAddSlot reserves size bytes at align within f's table body, records
// the resulting frame-relative offset in the vtable-stack slot for field
// id, and returns the reserved region for the caller to fill in. It is the
// shared core of every TableAdd* method and of table_add_offset.
func (b *Builder) tableAddSlot(f *frame, id VOffset, size, align int) ([]byte, int) {
	region, rel := b.dsReserve(f, size, align)
	b.ensureVtableSlot(f, id)
	slot := b.vtableStack.At(f.vtableStackBase + int(id))
	*slot = VOffset(rel)
	if int(id)+1 > f.maxFieldID {
		f.maxFieldID = int(id) + 1
	}
	f.vtableHash = mixVtableHash(f.vtableHash, id, rel)
	return region, rel
}

// ensureVtableSlot grows the shared vtable stack so that field id has a
// slot within f's region, zero-filling any newly created intermediate
// slots (an absent field reads back as offset zero).
func (b *Builder) ensureVtableSlot(f *frame, id VOffset) {
	need := f.vtableStackBase + int(id) + 1
	if b.vtableStack.Len() < need {
		b.vtableStack.Grow(need - b.vtableStack.Len())
	}
}

// mixVtableHash folds one (field id, relative offset) pair into a running
// hash kept in the table frame. The vtable cache does not read it: its
// lookups hash and compare the encoded vtable bytes that finalizeVtable
// produces.
func mixVtableHash(h uint32, id VOffset, rel int) uint32 {
	h ^= uint32(id) * 2654435761
	h = (h << 13) | (h >> 19)
	h ^= uint32(rel) * 2246822519
	return h
}

// tableAddOffsetSlot reserves a uoffset-sized field slot for id and queues
// a patch-log entry so end_table can relocate absTarget into a table-
// relative uoffset once the table's own final address is known.
func (b *Builder) tableAddOffsetSlot(f *frame, id VOffset, absTarget int64) {
	_, rel := b.tableAddSlot(f, id, SizeUOffset, SizeUOffset)
	b.patchLog.Append(patchEntry{relOffset: rel, absTarget: absTarget})
}

// patchEntriesFor returns the patch-log entries queued since f was
// entered.
func (b *Builder) patchEntriesFor(f *frame) []patchEntry {
	return b.patchLog.Slice()[f.patchLogBase:]
}

// finalizeVtable encodes f's vtable: a VtableMetadataFields-wide header
// (vtable byte size, table byte size) followed by one VOffset per field,
// trimmed of any trailing absent (zero) slots, per spec.md section 4.10.
func (b *Builder) finalizeVtable(f *frame, tableSize int) []byte {
	all := b.vtableStack.Slice()[f.vtableStackBase:b.vtableStack.Len()]
	n := len(all)
	for n > 0 && all[n-1] == 0 {
		n--
	}
	fields := all[:n]

	vtableSize := (VtableMetadataFields + len(fields)) * SizeVOffset
	buf := make([]byte, vtableSize)
	writeVOffset(buf[0:], VOffset(vtableSize))
	writeVOffset(buf[SizeVOffset:], VOffset(tableSize))
	for i, slot := range fields {
		writeVOffset(buf[(VtableMetadataFields+i)*SizeVOffset:], slot)
	}
	return buf
}
