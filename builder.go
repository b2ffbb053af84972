// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"github.com/flatforge/flatforge/internal/log"
)

// Ref is an absolute, signed byte address returned by the emission sink.
// Zero denotes null/invalid, matching the wire convention that a header
// offset of zero means "no value" (spec.md section 3, "Offset-reference").
type Ref int64

// Builder assembles a FlatBuffers-compatible buffer back-to-front, sharing
// vtables as it goes. A Builder is not safe for concurrent use; every
// operation must be serialized by the caller (spec.md section 5).
type Builder struct {
	dataStack   Arena[byte]
	vtableStack Arena[VOffset]
	patchLog    Arena[patchEntry]
	frames      Arena[frame]
	cache       *vtableCache

	sink EmissionSink
	opts Options
	log  *log.Helper

	level      int
	minAlign   int
	bufferMark int64

	alignStack []int // push/pop_buffer_alignment
}

// NewBuilder creates a Builder backed by the default in-memory sink, whose
// initial allocation is initialSize bytes (0 picks a sensible default).
func NewBuilder(initialSize int) *Builder {
	opts := Options{InitialSinkSize: initialSize}
	return CustomInit(nil, opts)
}

// CustomInit creates a Builder against a caller-supplied sink (e.g. a
// CallbackSink or MMapSink), matching the reference builder's
// custom_init(sink, sink_ctx, alloc, alloc_ctx) entry point. sink == nil
// selects the default in-memory sink. There is no separate allocator
// callback: Go's runtime allocator and the Arena growth policy in
// arena.go already provide the geometric-growth contract init's alloc_ctx
// exists for in the reference implementation.
func CustomInit(sink EmissionSink, opts Options) *Builder {
	opts.normalize()
	if sink == nil {
		sink = newBufferSink(opts.InitialSinkSize)
	}
	b := &Builder{
		sink:     sink,
		opts:     opts,
		log:      log.NewHelper(opts.Logger),
		minAlign: 1,
	}
	b.cache = newVtableCache(opts.VbFlushLimit)
	return b
}

// Reset clears all builder state (frames, data stack, vtable stack, patch
// log, vtable cache) while retaining the arenas' allocated capacity, and
// rewinds the default sink to an empty buffer. Custom sinks (Callback,
// MMap) are not rewindable and must be replaced by the caller instead.
func (b *Builder) Reset() {
	b.dataStack.Reset()
	b.vtableStack.Reset()
	b.patchLog.Reset()
	b.frames.Reset()
	b.cache.flush()
	b.level = 0
	b.minAlign = 1
	b.bufferMark++
	b.alignStack = b.alignStack[:0]
	if r, ok := b.sink.(interface{ reset() }); ok {
		r.reset()
	}
}

// Clear is Reset plus releasing the vtable cache's cached byte capacity,
// for callers that want a hard floor on retained memory between buffers.
func (b *Builder) Clear() {
	b.Reset()
	b.cache.bytesArena.Shrink(0)
	b.cache.descriptors.Shrink(0)
}

// SetMaxLevel bounds frame nesting depth; 0 disables the bound.
func (b *Builder) SetMaxLevel(n int) { b.opts.MaxLevel = n }

// SetVtableClustering enables or disables emitting vtables to the back of
// the top-level buffer for maximal cross-table sharing.
func (b *Builder) SetVtableClustering(enabled bool) { b.opts.DisableVtClustering = !enabled }

// SetVtableCacheLimit sets the byte threshold after which the vtable
// cache is flushed wholesale rather than grown further.
func (b *Builder) SetVtableCacheLimit(n int) {
	b.opts.VbFlushLimit = n
	b.cache.flushLimit = n
}

// SetBlockAlign pads the finished top-level buffer's length to a multiple
// of align.
func (b *Builder) SetBlockAlign(align int) { b.opts.BlockAlign = align }

// GetBufferAlignment reports the largest alignment observed so far in the
// current buffer.
func (b *Builder) GetBufferAlignment() int { return b.minAlign }

// PushBufferAlignment temporarily raises the buffer's minimum alignment,
// for embedding a sub-structure that must not relax the parent's
// alignment requirement below its own.
func (b *Builder) PushBufferAlignment(align int) {
	b.alignStack = append(b.alignStack, b.minAlign)
	if align > b.minAlign {
		b.minAlign = align
	}
}

// PopBufferAlignment restores the alignment saved by the matching
// PushBufferAlignment.
func (b *Builder) PopBufferAlignment() {
	n := len(b.alignStack)
	if n == 0 {
		return
	}
	b.minAlign = b.alignStack[n-1]
	b.alignStack = b.alignStack[:n-1]
}

// alignFrontPad returns the minimal non-negative pad such that, once pad
// bytes and then trailerLen further bytes are emitted to the front, the
// address immediately following the pad (i.e. where trailerLen's content
// begins) is a multiple of align.
func (b *Builder) alignFrontPad(trailerLen, align int) int {
	if align <= 1 {
		return 0
	}
	s := b.sink.Start()
	want := s - int64(trailerLen)
	rem := ((want % int64(align)) + int64(align)) % int64(align)
	return int(rem)
}

// --- Buffer framing (spec.md section 4.9) ---

// StartBuffer pushes a new buffer frame. identifier, if non-empty, is
// copied (truncated or zero-padded) into the 4-byte file identifier slot.
// nested marks a buffer meant to be embedded in an outer byte-vector
// field, so EndBuffer prefixes its own byte length.
func (b *Builder) StartBuffer(identifier string, blockAlign int, nested bool) error {
	f, err := b.enterFrame(frameBuffer, 1)
	if err != nil {
		return err
	}
	f.savedMinAlign = b.minAlign
	b.minAlign = 1
	f.blockAlign = blockAlign
	f.isNested = nested
	if identifier != "" {
		f.hasIdentifier = true
		n := copy(f.identifier[:], identifier)
		for i := n; i < FileIdentifierLength; i++ {
			f.identifier[i] = 0
		}
	}
	return nil
}

// EndBuffer finalizes the current buffer frame: pads the tail to the
// frame's block alignment, prepends the root uoffset and optional file
// identifier with front-padding sufficient for the buffer's min_align,
// and (for a nested buffer) prefixes the whole thing with its own byte
// length, per spec.md section 4.9.
func (b *Builder) EndBuffer(root Ref) (Ref, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameBuffer {
		return 0, ErrMisuse
	}

	if f.blockAlign > 1 {
		size := b.sink.End() - b.sink.Start()
		rem := size % int64(f.blockAlign)
		if rem != 0 {
			pad := int64(f.blockAlign) - rem
			if _, err := b.sink.EmitBack(make([]byte, pad)); err != nil {
				return 0, err
			}
		}
	}

	headerSize := SizeUOffset
	if f.hasIdentifier {
		headerSize += FileIdentifierLength
	}
	if b.minAlign < SizeUOffset {
		b.minAlign = SizeUOffset
	}

	preStart := b.sink.Start()
	if pad := b.alignFrontPad(headerSize, b.minAlign); pad > 0 {
		if _, err := b.sink.EmitFront(make([]byte, pad)); err != nil {
			return 0, err
		}
	}
	headerAddr := b.sink.Start() - int64(headerSize)

	header := make([]byte, headerSize)
	rel := uint32(int64(root) - headerAddr)
	writeUint32(header[:SizeUOffset], rel)
	if f.hasIdentifier {
		copy(header[SizeUOffset:], f.identifier[:])
	}
	if _, err := b.sink.EmitFront(header); err != nil {
		return 0, err
	}

	bufRef := headerAddr
	if f.isNested {
		nestedLen := preStart - b.sink.Start()
		lenBytes := make([]byte, SizeUOffset)
		writeUint32(lenBytes, uint32(nestedLen))
		if _, err := b.sink.EmitFront(lenBytes); err != nil {
			return 0, err
		}
	}

	b.minAlign = f.savedMinAlign
	b.frames.Truncate(b.frames.Len() - 1)
	b.level--
	return Ref(bufRef), nil
}

// FinishBuffer is the common one-shot path: it starts an unnested, default-
// aligned buffer, finishes it with root and identifier fid, and returns the
// assembled bytes from the default in-memory sink. For streaming or
// memory-mapped sinks, use StartBuffer/EndBuffer directly and read the
// finished range via the sink's own accessors. The alignment observed for
// the content built before the call carries into the header's padding.
func (b *Builder) FinishBuffer(root Ref, fid string) ([]byte, error) {
	align := b.minAlign
	if err := b.StartBuffer(fid, b.opts.BlockAlign, false); err != nil {
		return nil, err
	}
	if align > b.minAlign {
		b.minAlign = align
	}
	if _, err := b.EndBuffer(root); err != nil {
		return nil, err
	}
	return b.sink.Bytes(), nil
}

// FinishAlignedBuffer is FinishBuffer with the buffer's minimum alignment
// raised to at least align beforehand, so the buffer header lands on a
// multiple of align in the builder's address space. Only addresses
// relative to the start of the returned bytes are aligned; the memory
// address of the returned slice itself is not.
func (b *Builder) FinishAlignedBuffer(root Ref, fid string, align int) ([]byte, error) {
	b.PushBufferAlignment(align)
	defer b.PopBufferAlignment()
	return b.FinishBuffer(root, fid)
}

// CopyBuffer returns a fresh copy of the bytes assembled so far. Safe to
// call mid-construction only between top-level start/end_buffer pairs.
func (b *Builder) CopyBuffer() []byte {
	src := b.sink.Bytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// --- Tables (spec.md sections 4.4, 4.5, 4.7, 4.10) ---

// StartTable pushes a new table frame, reserving fieldCount vtable slots
// and patch-log capacity up front as a sizing hint; fieldCount may be 0
// and the stacks will simply grow on demand.
func (b *Builder) StartTable(fieldCount int) error {
	f, err := b.enterFrame(frameTable, 1)
	if err != nil {
		return err
	}
	f.vtableStackBase = b.vtableStack.Len()
	f.patchLogBase = b.patchLog.Len()
	if fieldCount > 0 {
		b.vtableStack.Grow(fieldCount)
	}
	// Reserve the 4 bytes standing in for the soffset-to-vtable header;
	// table_add offsets are thus naturally >= 4 (spec.md section 4.4).
	b.dataStack.Grow(SizeSOffset)
	return nil
}

// ReserveTable grows the vtable-stack reservation for the current table
// frame to at least count fields, without changing any already-recorded
// slot.
func (b *Builder) ReserveTable(count int) error {
	f := b.currentFrame()
	if f == nil || f.kind != frameTable {
		return ErrMisuse
	}
	b.ensureVtableSlot(f, VOffset(count-1))
	return nil
}

// CheckRequired reports ErrRequiredFieldAbsent if any of ids was never
// given a non-default value in the currently open table.
func (b *Builder) CheckRequired(ids ...VOffset) error {
	f := b.currentFrame()
	if f == nil || f.kind != frameTable {
		return ErrMisuse
	}
	for _, id := range ids {
		if int(id) >= f.maxFieldID {
			return ErrRequiredFieldAbsent
		}
		if *b.vtableStack.At(f.vtableStackBase+int(id)) == 0 {
			return ErrRequiredFieldAbsent
		}
	}
	return nil
}

func (b *Builder) tableField(id VOffset, size, align int) ([]byte, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameTable {
		return nil, ErrMisuse
	}
	region, _ := b.tableAddSlot(f, id, size, align)
	return region, nil
}

// TableAddCopy writes src verbatim into field id, aligned to align. Used
// for struct-valued fields (the struct's bytes are embedded directly, not
// referenced through an offset).
func (b *Builder) TableAddCopy(id VOffset, src []byte, align int) error {
	region, err := b.tableField(id, len(src), align)
	if err != nil {
		return err
	}
	copy(region, src)
	return nil
}

// TableAddOffset records field id as a uoffset pointing at ref, skipping
// the field entirely when ref equals def (spec.md scenario S2).
func (b *Builder) TableAddOffset(id VOffset, ref, def Ref) error {
	if ref == def {
		return nil
	}
	f := b.currentFrame()
	if f == nil || f.kind != frameTable {
		return ErrMisuse
	}
	b.tableAddOffsetSlot(f, id, int64(ref))
	return nil
}

func (b *Builder) TableAddBool(id VOffset, v, def bool) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeBool, 1)
	if err != nil {
		return err
	}
	writeBool(r, v)
	return nil
}

func (b *Builder) TableAddInt8(id VOffset, v, def int8) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeInt8, 1)
	if err != nil {
		return err
	}
	writeInt8(r, v)
	return nil
}

func (b *Builder) TableAddUint8(id VOffset, v, def uint8) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeUint8, 1)
	if err != nil {
		return err
	}
	writeUint8(r, v)
	return nil
}

func (b *Builder) TableAddInt16(id VOffset, v, def int16) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeInt16, SizeInt16)
	if err != nil {
		return err
	}
	writeInt16(r, v)
	return nil
}

func (b *Builder) TableAddUint16(id VOffset, v, def uint16) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeUint16, SizeUint16)
	if err != nil {
		return err
	}
	writeUint16(r, v)
	return nil
}

func (b *Builder) TableAddInt32(id VOffset, v, def int32) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeInt32, SizeInt32)
	if err != nil {
		return err
	}
	writeInt32(r, v)
	return nil
}

func (b *Builder) TableAddUint32(id VOffset, v, def uint32) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeUint32, SizeUint32)
	if err != nil {
		return err
	}
	writeUint32(r, v)
	return nil
}

func (b *Builder) TableAddInt64(id VOffset, v, def int64) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeInt64, SizeInt64)
	if err != nil {
		return err
	}
	writeInt64(r, v)
	return nil
}

func (b *Builder) TableAddUint64(id VOffset, v, def uint64) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeUint64, SizeUint64)
	if err != nil {
		return err
	}
	writeUint64(r, v)
	return nil
}

func (b *Builder) TableAddFloat32(id VOffset, v, def float32) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeFloat32, SizeFloat32)
	if err != nil {
		return err
	}
	writeFloat32(r, v)
	return nil
}

func (b *Builder) TableAddFloat64(id VOffset, v, def float64) error {
	if v == def {
		return nil
	}
	r, err := b.tableField(id, SizeFloat64, SizeFloat64)
	if err != nil {
		return err
	}
	writeFloat64(r, v)
	return nil
}

// resolvePatches converts every queued patch-log entry for frame f into a
// relative uoffset, given that f's data region will be emitted verbatim
// starting at absolute address base (spec.md section 4.7, step 4, and
// section 4.8's offset-vector element relocation).
func (b *Builder) resolvePatches(f *frame, base int64) {
	for _, e := range b.patchEntriesFor(f) {
		fieldAddr := base + int64(e.relOffset)
		rel := uint32(e.absTarget - fieldAddr)
		var buf [SizeUOffset]byte
		writeUint32(buf[:], rel)
		b.dsWriteAt(f, e.relOffset, buf[:])
	}
	b.patchLog.Truncate(f.patchLogBase)
}

// EndTable finalizes the current table: pads its body to the table's
// observed alignment, materializes and dedup-emits the vtable (flushing
// the cache first if it has crossed VbFlushLimit), front-pads the sink so
// the table's own start address also lands on that alignment, relocates
// every queued offset field, emits the table body, and pops the frame.
func (b *Builder) EndTable() (Ref, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameTable {
		return 0, ErrMisuse
	}

	bodyLen := b.dsCursorRel(f)
	if pad := padNeeded(bodyLen, f.alignment, 0); pad > 0 {
		b.dataStack.Grow(pad)
		bodyLen += pad
	}
	vt := b.finalizeVtable(f, bodyLen)

	vtIdx, cachedRef, fresh, found := b.cache.lookup(vt, b.bufferMark)
	var vtRef int64
	switch {
	case found && fresh:
		vtRef = cachedRef
	case found:
		data := b.cache.bytesOf(vtIdx)
		addr, err := b.emitVtable(data)
		if err != nil {
			return 0, err
		}
		vtRef = addr
		b.cache.refreshReference(vtIdx, addr, b.bufferMark)
	default:
		addr, err := b.emitVtable(vt)
		if err != nil {
			return 0, err
		}
		vtRef = addr
		b.cache.insert(vt, addr, b.bufferMark)
	}
	if b.cache.overLimit() {
		b.log.Infof("vtable cache crossed %d bytes, flushing", b.opts.VbFlushLimit)
		b.cache.flush()
	}

	// Front-pad so the table's own start address (not just its body
	// length) lands on f.alignment; emitted as its own EmitFront call
	// since a pad folded into the same call as the body never moves the
	// body's address (it stays pinned to the pre-pad front edge).
	if pad := b.alignFrontPad(bodyLen, f.alignment); pad > 0 {
		if _, err := b.sink.EmitFront(make([]byte, pad)); err != nil {
			return 0, err
		}
	}

	tableAddr := b.sink.Start() - int64(bodyLen)
	var soffsetBuf [SizeSOffset]byte
	writeSOffset(soffsetBuf[:], SOffset(tableAddr-vtRef))
	b.dsWriteAt(f, 0, soffsetBuf[:])

	b.resolvePatches(f, tableAddr)

	body := b.dsBytes(f)
	addr, err := b.sink.EmitFront(body)
	if err != nil {
		return 0, err
	}

	b.vtableStack.Truncate(f.vtableStackBase)
	b.exitFrame()
	return Ref(addr), nil
}

// emitVtable places vt at the back of the buffer when clustering is
// enabled (the default), or at the front otherwise.
func (b *Builder) emitVtable(vt []byte) (int64, error) {
	if b.opts.DisableVtClustering {
		return b.sink.EmitFront(vt)
	}
	return b.sink.EmitBack(vt)
}

// --- Structs (spec.md section 4.8) ---

// StartStruct reserves size bytes of exact struct storage aligned to
// align and returns them for the caller to fill in directly; structs
// cannot contain offset fields, so there is no patch log involved.
func (b *Builder) StartStruct(size, align int) ([]byte, error) {
	f, err := b.enterFrame(frameStruct, align)
	if err != nil {
		return nil, err
	}
	region, _ := b.dsReserve(f, size, align)
	return region, nil
}

// EndStruct emits the struct body built since StartStruct and pops the
// frame.
func (b *Builder) EndStruct() (Ref, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameStruct {
		return 0, ErrMisuse
	}
	body := b.dsBytes(f)
	if pad := b.alignFrontPad(len(body), f.alignment); pad > 0 {
		if _, err := b.sink.EmitFront(make([]byte, pad)); err != nil {
			return 0, err
		}
	}
	addr, err := b.sink.EmitFront(body)
	if err != nil {
		return 0, err
	}
	b.exitFrame()
	return Ref(addr), nil
}

// CreateStruct is StartStruct+copy+EndStruct in one call.
func (b *Builder) CreateStruct(data []byte, align int) (Ref, error) {
	region, err := b.StartStruct(len(data), align)
	if err != nil {
		return 0, err
	}
	copy(region, data)
	return b.EndStruct()
}

// --- Vectors (spec.md section 4.8) ---

// StartVector pushes a vector frame for at most maxCount (0 = unbounded)
// elements of elemSize bytes, aligned to align.
func (b *Builder) StartVector(elemSize, align, maxCount int) error {
	f, err := b.enterFrame(frameVector, align)
	if err != nil {
		return err
	}
	f.elementSize = elemSize
	f.maxElementCount = maxCount
	return nil
}

func (b *Builder) vectorFrame() (*frame, error) {
	f := b.currentFrame()
	if f == nil || (f.kind != frameVector && f.kind != frameOffsetVector) {
		return nil, ErrMisuse
	}
	return f, nil
}

// ExtendVector grows the vector by n elements and returns the raw region
// for the caller to fill in bulk.
func (b *Builder) ExtendVector(n int) ([]byte, error) {
	f, err := b.vectorFrame()
	if err != nil {
		return nil, err
	}
	if err := checkVectorCount(f, n); err != nil {
		return nil, err
	}
	region, _ := b.dsReserve(f, n*f.elementSize, f.alignment)
	f.elementCount += n
	return region, nil
}

// VectorPush appends one element's raw bytes.
func (b *Builder) VectorPush(src []byte) error {
	f, err := b.vectorFrame()
	if err != nil {
		return err
	}
	if err := checkVectorCount(f, 1); err != nil {
		return err
	}
	region, _ := b.dsReserve(f, len(src), f.alignment)
	copy(region, src)
	f.elementCount++
	return nil
}

// AppendVector appends n elements' worth of raw bytes from src in bulk.
func (b *Builder) AppendVector(src []byte, n int) error {
	region, err := b.ExtendVector(n)
	if err != nil {
		return err
	}
	copy(region, src)
	return nil
}

// TruncateVector shrinks the vector to n elements.
func (b *Builder) TruncateVector(n int) error {
	f, err := b.vectorFrame()
	if err != nil {
		return err
	}
	if n < 0 || n > f.elementCount {
		return ErrMisuse
	}
	b.dataStack.Truncate(f.dataStackBase + n*f.elementSize)
	f.elementCount = n
	return nil
}

func checkVectorCount(f *frame, add int) error {
	if f.maxElementCount > 0 && f.elementCount+add > f.maxElementCount {
		return ErrMisuse
	}
	divisor := f.elementSize
	if divisor < 1 {
		divisor = 1
	}
	limit := int(UOffsetMax) / divisor
	if f.elementCount+add > limit {
		return ErrOverflow
	}
	return nil
}

// EndVector prepends the element count as a uoffset and emits the vector,
// with leading pad chosen so the *first element* (not the header) lands
// on its required alignment, per spec.md section 4.8.
func (b *Builder) EndVector() (Ref, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameVector {
		return 0, ErrMisuse
	}
	ref, err := b.finishVectorLike(f)
	if err != nil {
		return 0, err
	}
	b.exitFrame()
	return ref, nil
}

// finishVectorLike builds and emits the [length][elements] block common to
// both plain and offset vectors, applying any queued patch-log
// relocations for offset-vector elements first.
func (b *Builder) finishVectorLike(f *frame) (Ref, error) {
	bodyLen := b.dsCursorRel(f)

	// Front-pad so the first *element* (bodyLen bytes before the current
	// front edge once the pad and the length-prefixed trailer are both
	// emitted), not the length prefix, lands on f.alignment. Emitted as
	// its own EmitFront call: a pad baked into the same call as the
	// trailer never moves the trailer's address, since EmitFront always
	// pins the trailer to the pre-pad front edge.
	if pad := b.alignFrontPad(bodyLen, f.alignment); pad > 0 {
		if _, err := b.sink.EmitFront(make([]byte, pad)); err != nil {
			return 0, err
		}
	}

	elemStart := b.sink.Start() - int64(bodyLen)
	if f.kind == frameOffsetVector {
		b.resolvePatches(f, elemStart)
	}

	trailerLen := SizeUOffset + bodyLen
	trailer := make([]byte, trailerLen)
	writeUOffset(trailer[:SizeUOffset], UOffset(f.elementCount))
	copy(trailer[SizeUOffset:], b.dsBytes(f))

	addr, err := b.sink.EmitFront(trailer)
	if err != nil {
		return 0, err
	}
	return Ref(addr), nil
}

// CreateVector is StartVector+AppendVector+EndVector in one call.
func (b *Builder) CreateVector(data []byte, n, elemSize, align int) (Ref, error) {
	if err := b.StartVector(elemSize, align, 0); err != nil {
		return 0, err
	}
	if n > 0 {
		if err := b.AppendVector(data, n); err != nil {
			return 0, err
		}
	}
	return b.EndVector()
}

// --- Offset-vectors (spec.md section 4.8) ---

// StartOffsetVector pushes an offset-vector frame: a vector whose elements
// are 4-byte uoffsets, relocated individually at EndOffsetVector.
func (b *Builder) StartOffsetVector(maxCount int) error {
	f, err := b.enterFrame(frameOffsetVector, SizeUOffset)
	if err != nil {
		return err
	}
	f.elementSize = SizeUOffset
	f.maxElementCount = maxCount
	f.patchLogBase = b.patchLog.Len()
	return nil
}

// OffsetVectorPush appends one element pointing at ref; the stored value
// is relocated to be relative to the element's own final address when
// the vector is finished.
func (b *Builder) OffsetVectorPush(ref Ref) error {
	f, err := b.vectorFrame()
	if err != nil {
		return err
	}
	if f.kind != frameOffsetVector {
		return ErrMisuse
	}
	if err := checkVectorCount(f, 1); err != nil {
		return err
	}
	_, rel := b.dsReserve(f, SizeUOffset, SizeUOffset)
	b.patchLog.Append(patchEntry{relOffset: rel, absTarget: int64(ref)})
	f.elementCount++
	return nil
}

// EndOffsetVector finishes the current offset-vector frame.
func (b *Builder) EndOffsetVector() (Ref, error) {
	f := b.currentFrame()
	if f == nil || f.kind != frameOffsetVector {
		return 0, ErrMisuse
	}
	ref, err := b.finishVectorLike(f)
	if err != nil {
		return 0, err
	}
	b.exitFrame()
	return ref, nil
}

// CreateOffsetVector is StartOffsetVector+OffsetVectorPush*+EndOffsetVector
// in one call.
func (b *Builder) CreateOffsetVector(refs []Ref) (Ref, error) {
	if err := b.StartOffsetVector(len(refs)); err != nil {
		return 0, err
	}
	for _, r := range refs {
		if err := b.OffsetVectorPush(r); err != nil {
			return 0, err
		}
	}
	return b.EndOffsetVector()
}

// --- Strings (spec.md section 4.8) ---

// CreateStringStrn is CreateString bounded to at most max bytes of s.
func (b *Builder) CreateStringStrn(s string, max int) (Ref, error) {
	if len(s) > max {
		s = s[:max]
	}
	return b.CreateString(s)
}

// CreateStringStr is an alias for CreateString, present for parity with
// the reference builder's create_string_str entry point.
func (b *Builder) CreateStringStr(s string) (Ref, error) { return b.CreateString(s) }

// CreateString emits s as a length-prefixed, nul-terminated byte vector
// (spec.md section 3, invariant 8). The terminator does not count toward
// the stored length.
func (b *Builder) CreateString(s string) (Ref, error) {
	bodyLen := len(s) + 1
	if pad := b.alignFrontPad(bodyLen, SizeUOffset); pad > 0 {
		if _, err := b.sink.EmitFront(make([]byte, pad)); err != nil {
			return 0, err
		}
	}

	trailerLen := SizeUOffset + bodyLen
	trailer := make([]byte, trailerLen)
	writeUOffset(trailer[:SizeUOffset], UOffset(len(s)))
	copy(trailer[SizeUOffset:], s)
	trailer[len(trailer)-1] = 0

	addr, err := b.sink.EmitFront(trailer)
	if err != nil {
		return 0, err
	}
	return Ref(addr), nil
}
