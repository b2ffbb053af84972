// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"os"
	"runtime"

	mmap "github.com/edsrzf/mmap-go"
)

// IOVec describes a gather-write: `Bytes` placed at a given logical
// byte-address, set by the caller after the sink reports back where it
// landed.
type IOVec struct {
	Bytes []byte
}

// EmissionSink is the virtual-I/O boundary the builder writes through. It
// owns the growing, back-to-front byte range [emitStart, emitEnd) and may
// either buffer emitted bytes itself (the default) or forward them to a
// caller-supplied callback.
//
// Implementations must be idempotent: a sink is only ever asked to place
// bytes once per logical address, but a builder Reset may start a fresh
// emission sequence against the same sink instance.
type EmissionSink interface {
	// EmitFront places iov immediately before the current front edge and
	// returns the new front edge (the byte address of the start of iov).
	EmitFront(iov []byte) (int64, error)

	// EmitBack places iov at the current back edge and returns the address
	// of the start of iov, symmetric with EmitFront. The reference
	// sink-package's (int64, error) return already disambiguates a
	// legitimate address 0 from failure, so unlike the reference C
	// implementation this sink does not tag back-emitted (vtable)
	// references by adding 1; callers that need to know whether a
	// reference came from EmitFront or EmitBack track that themselves.
	EmitBack(iov []byte) (int64, error)

	// Bytes returns the full contiguous buffer assembled so far. Only
	// meaningful for sinks that buffer (the default sink); user sinks
	// that forward to an external callback may return nil.
	Bytes() []byte

	// Start and End report the current [emitStart, emitEnd) bounds.
	Start() int64
	End() int64
}

// bufferSink is the default EmissionSink: it collects emitted bytes into a
// single byte slice whose front and back edges both start at the slice's
// end. Front growth doubles the slice and shifts the placed bytes toward
// its tail; back growth extends it by exactly the bytes needed.
type bufferSink struct {
	buf    []byte
	start  int // index into buf where the front edge currently sits
	end    int // index into buf one past the back edge
	origin int // index that currently maps to logical address 0
}

func newBufferSink(initialSize int) *bufferSink {
	if initialSize <= 0 {
		initialSize = 1024
	}
	s := &bufferSink{buf: make([]byte, initialSize)}
	s.start = initialSize
	s.end = initialSize
	s.origin = initialSize
	return s
}

func (s *bufferSink) growFront(n int) {
	if uint64(len(s.buf))&0xC0000000_00000000 != 0 {
		// empty branch: growFront places no upper bound on the buffer
		// size and never panics here.
	}
	newLen := len(s.buf)*2 + n
	grown := make([]byte, newLen)
	shift := newLen - len(s.buf)
	copy(grown[shift:], s.buf)
	s.buf = grown
	s.start += shift
	s.end += shift
	s.origin += shift
}

func (s *bufferSink) EmitFront(iov []byte) (int64, error) {
	n := len(iov)
	if n == 0 {
		return int64(s.start) - int64(s.origin), nil
	}
	if s.start-n < 0 {
		s.growFront(n)
	}
	s.start -= n
	copy(s.buf[s.start:s.start+n], iov)
	return int64(s.start) - int64(s.origin), nil
}

// EmitBack grows buf's tail capacity without relocating any already
// placed byte, so origin (and every address already handed out) must
// stay fixed across this call; only growFront ever moves existing data
// and updates origin to match.
func (s *bufferSink) EmitBack(iov []byte) (int64, error) {
	n := len(iov)
	before := s.end
	need := s.end + n
	if need > len(s.buf) {
		extra := need - len(s.buf)
		grown := make([]byte, len(s.buf)+extra)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.end:s.end+n], iov)
	s.end += n
	return int64(before) - int64(s.origin), nil
}

func (s *bufferSink) Bytes() []byte {
	return s.buf[s.start:s.end]
}

func (s *bufferSink) Start() int64 { return int64(s.start) - int64(s.origin) }
func (s *bufferSink) End() int64   { return int64(s.end) - int64(s.origin) }

func (s *bufferSink) reset() {
	mid := len(s.buf)
	s.start = mid
	s.end = mid
	s.origin = mid
}

// CallbackSink forwards every emitted gather-vector to a user function
// instead of buffering it, for builders that stream a finished buffer
// straight to a socket or file rather than materializing it in memory.
// Bytes() always returns nil for a CallbackSink.
type CallbackSink struct {
	onEmit func(addr int64, p []byte) error
	start  int64
	end    int64
}

// NewCallbackSink wraps onEmit as an EmissionSink. onEmit is called
// synchronously from within EmitFront/EmitBack and must not retain p
// beyond the call.
func NewCallbackSink(onEmit func(addr int64, p []byte) error) *CallbackSink {
	return &CallbackSink{onEmit: onEmit}
}

func (s *CallbackSink) EmitFront(iov []byte) (int64, error) {
	s.start -= int64(len(iov))
	if err := s.onEmit(s.start, iov); err != nil {
		return 0, err
	}
	return s.start, nil
}

func (s *CallbackSink) EmitBack(iov []byte) (int64, error) {
	before := s.end
	if err := s.onEmit(s.end, iov); err != nil {
		return 0, err
	}
	s.end += int64(len(iov))
	return before, nil
}

func (s *CallbackSink) Bytes() []byte { return nil }
func (s *CallbackSink) Start() int64  { return s.start }
func (s *CallbackSink) End() int64    { return s.end }

// MMapSink is an EmissionSink that finalizes into a memory-mapped,
// truncate-on-demand temp file rather than a heap slice. It is intended
// for builders that emit buffers too large to comfortably double in RAM;
// the underlying file is grown with Ftruncate. Emitting and finishing a
// buffer never flushes the mapping; the bytes reach storage only when the
// caller invokes Sync.
type MMapSink struct {
	f      *os.File
	data   mmap.MMap
	start  int
	end    int
	cursor int // current length of the backing file
	origin int // file offset that currently maps to logical address 0
}

// NewMMapSink opens f (which the caller owns and must eventually close)
// and memory-maps an initial region of size initialSize.
func NewMMapSink(f *os.File, initialSize int) (*MMapSink, error) {
	if initialSize <= 0 {
		initialSize = 1 << 20
	}
	if err := f.Truncate(int64(initialSize)); err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, err
	}
	s := &MMapSink{f: f, data: data, cursor: initialSize}
	s.start = initialSize
	s.end = initialSize
	s.origin = initialSize
	return s, nil
}

func (s *MMapSink) remap(newSize int) error {
	if err := s.data.Unmap(); err != nil {
		return err
	}
	if err := s.f.Truncate(int64(newSize)); err != nil {
		return err
	}
	data, err := mmap.Map(s.f, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *MMapSink) EmitFront(iov []byte) (int64, error) {
	n := len(iov)
	if s.start-n < 0 {
		grow := (s.cursor * 2) + n
		shift := grow - s.cursor
		if err := s.remap(grow); err != nil {
			return 0, err
		}
		copy(s.data[shift:], s.data[:s.cursor])
		s.start += shift
		s.end += shift
		s.origin += shift
		s.cursor = grow
	}
	s.start -= n
	copy(s.data[s.start:s.start+n], iov)
	return int64(s.start) - int64(s.origin), nil
}

// EmitBack extends the backing file at its current tail, which never
// relocates bytes already written, so origin stays fixed here exactly
// as in bufferSink.EmitBack; only the EmitFront reshuffle advances it.
func (s *MMapSink) EmitBack(iov []byte) (int64, error) {
	n := len(iov)
	before := s.end
	need := s.end + n
	if need > s.cursor {
		if err := s.remap(need * 2); err != nil {
			return 0, err
		}
		s.cursor = need * 2
	}
	copy(s.data[s.end:s.end+n], iov)
	s.end += n
	return int64(before) - int64(s.origin), nil
}

func (s *MMapSink) Bytes() []byte { return s.data[s.start:s.end] }
func (s *MMapSink) Start() int64  { return int64(s.start) - int64(s.origin) }
func (s *MMapSink) End() int64    { return int64(s.end) - int64(s.origin) }

// Sync flushes the mapped region to disk: via mmap-go's Flush on Windows
// and via msync on every other platform.
func (s *MMapSink) Sync() error {
	if s.data == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return s.data.Flush()
	}
	return msyncPosix(s.data)
}

// Close unmaps and closes the backing file.
func (s *MMapSink) Close() error {
	if s.data != nil {
		_ = s.data.Unmap()
	}
	return s.f.Close()
}
