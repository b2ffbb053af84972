// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

// The data stack is the scratch area where the contents of the
// currently in-progress object accumulate, already in little-endian byte
// order, exactly as they are handed to the emission sink. A table's
// region begins with four reserved bytes standing in for the soffset
// header that will be prepended at emission time; this is why a table's
// smallest possible field offset is 4 (spec.md section 4.4): the reserved
// header bytes are simply never overwritten by table_add and are skipped
// over by every alignment computation done relative to the frame base.

// dsCursorRel returns the current data-stack cursor relative to f's base.
func (b *Builder) dsCursorRel(f *frame) int {
	return b.dataStack.Len() - f.dataStackBase
}

// dsReserve aligns the frame-relative cursor to align, grows size bytes,
// and returns the grown region along with the frame-relative offset at
// which it starts. Growing the data stack can reallocate the backing
// array; callers must not hold the returned slice across another dsReserve
// on the same builder before copying out of it or writing into it in full.
func (b *Builder) dsReserve(f *frame, size, align int) (region []byte, relOffset int) {
	rel := b.dsCursorRel(f)
	pad := padNeeded(rel, align, 0)
	if pad > 0 {
		b.dataStack.Grow(pad)
	}
	if align > f.alignment {
		f.alignment = align
	}
	relOffset = b.dsCursorRel(f)
	region = b.dataStack.Grow(size)
	return region, relOffset
}

// dsBytes returns the live table/struct/vector/string body for frame f,
// i.e. everything written since its base.
func (b *Builder) dsBytes(f *frame) []byte {
	return b.dataStack.Slice()[f.dataStackBase:]
}

// dsWriteAt writes p at the frame-relative offset rel, overwriting
// previously reserved bytes (used by the patch log to relocate absolute
// offset-field references into relative uoffsets once the owning table's
// final address is known).
func (b *Builder) dsWriteAt(f *frame, rel int, p []byte) {
	copy(b.dataStack.Slice()[f.dataStackBase+rel:], p)
}
