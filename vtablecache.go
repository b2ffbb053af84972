// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"bytes"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// vtableDescriptor is a cache entry: the byte range of an emitted vtable's
// content in the cache-bytes arena, the reference it was last emitted at,
// the buffer mark that reference is valid within, and a next-link for
// hash-bucket chaining (spec.md section 4.6).
type vtableDescriptor struct {
	off, length int
	ref         int64
	bufferMark  int64
	next        int // index into the descriptor arena, -1 if none
	prevHead    int // unused slot linking for move-to-front bookkeeping
}

// vtableCache deduplicates emitted vtables by content hash, scoped to one
// Builder's lifetime. Vtable *bytes* are shared across buffers built by
// the same Builder, but a vtable *reference* is only valid within the
// buffer that emitted it (spec.md "Vtable cache residency by buffer"), so
// a cache hit from a stale bufferMark re-emits using the cached bytes
// rather than reusing the old reference.
type vtableCache struct {
	bytesArena  Arena[byte]
	descriptors Arena[vtableDescriptor]
	heads       map[uint32]int // hash -> index into descriptors, head of chain

	// flushLimit bounds bytesArena.Len() before a bulk flush drops every
	// descriptor, matching the original's vb_flush_limit policy of
	// flushing the whole cache rather than evicting individual entries.
	flushLimit int

	// group deduplicates concurrent re-reads of a cached vtable's bytes
	// keyed by descriptor index. Each Builder owns its own cache, so only
	// concurrent reads of this one cache are coalesced.
	group singleflight.Group
}

func newVtableCache(flushLimit int) *vtableCache {
	return &vtableCache{
		heads:      make(map[uint32]int),
		flushLimit: flushLimit,
	}
}

// fnv1a32 hashes b. It is used only for the vtable-cache dedup index, not
// for anything wire-visible, so any well-distributed hash suffices.
func fnv1a32(b []byte) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime32
	}
	return h
}

// lookup searches the cache for vtable content equal to vt, emitted for
// buffer mark. It returns the matching descriptor index and whether a
// structurally-equal vtable with a still-valid reference was found.
func (c *vtableCache) lookup(vt []byte, mark int64) (idx int, ref int64, freshRef bool, found bool) {
	h := fnv1a32(vt)
	var prev = -1
	cur, ok := c.heads[h]
	if !ok {
		return -1, 0, false, false
	}
	for cur != -1 {
		d := c.descriptors.At(cur)
		if bytes.Equal(c.bytesArena.Slice()[d.off:d.off+d.length], vt) {
			c.moveToFront(h, prev, cur)
			return cur, d.ref, d.bufferMark == mark, true
		}
		prev = cur
		cur = d.next
	}
	return -1, 0, false, false
}

// moveToFront relinks the chain for hash h so that node cur becomes the
// head, per spec.md's "move-to-front within each hash bucket".
func (c *vtableCache) moveToFront(h uint32, prev, cur int) {
	if prev == -1 {
		return // already head
	}
	d := c.descriptors.At(cur)
	prevNode := c.descriptors.At(prev)
	prevNode.next = d.next
	head := c.heads[h]
	d.next = head
	c.heads[h] = cur
}

// insert stores a copy of vt's bytes and records a
// fresh descriptor pointing at ref/mark, as the new head of its bucket.
func (c *vtableCache) insert(vt []byte, ref int64, mark int64) {
	off := c.bytesArena.Len()
	region := c.bytesArena.Grow(len(vt))
	copy(region, vt)
	h := fnv1a32(vt)
	idx := c.descriptors.Append(vtableDescriptor{
		off:        off,
		length:     len(vt),
		ref:        ref,
		bufferMark: mark,
		next:       -1,
		prevHead:   -1,
	})
	d := c.descriptors.At(idx)
	d.next = -1
	if head, ok := c.heads[h]; ok {
		d.next = head
	}
	c.heads[h] = idx
}

// refreshReference updates a cache hit's descriptor to point at a newly
// re-emitted reference within a new buffer mark, reusing the cached bytes.
func (c *vtableCache) refreshReference(idx int, ref int64, mark int64) {
	d := c.descriptors.At(idx)
	d.ref = ref
	d.bufferMark = mark
}

// bytesOf returns a copy of the cached vtable bytes for descriptor idx.
// Concurrent callers asking for the same idx before the first copy
// finishes share its result via singleflight rather than each re-reading
// bytesArena's backing slice, which may be mid-growth in another goroutine.
func (c *vtableCache) bytesOf(idx int) []byte {
	v, _, _ := c.group.Do(strconv.Itoa(idx), func() (interface{}, error) {
		d := c.descriptors.At(idx)
		out := make([]byte, d.length)
		copy(out, c.bytesArena.Slice()[d.off:d.off+d.length])
		return out, nil
	})
	return v.([]byte)
}

// overLimit reports whether the cache-bytes arena has crossed flushLimit
// and should be bulk-flushed before the next table is emitted.
func (c *vtableCache) overLimit() bool {
	return c.flushLimit > 0 && c.bytesArena.Len() >= c.flushLimit
}

// flush drops every cached vtable, releasing the bytes arena and
// descriptor list and clearing the hash index. Subsequent end_table
// calls must re-emit and re-insert vtables from scratch.
func (c *vtableCache) flush() {
	c.bytesArena.Reset()
	c.descriptors.Reset()
	c.heads = make(map[uint32]int)
}
