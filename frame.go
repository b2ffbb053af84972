// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

// frameKind identifies what kind of in-progress object a frame describes.
type frameKind uint8

const (
	frameEmpty frameKind = iota
	frameTable
	frameStruct
	frameVector
	frameOffsetVector
	frameString
	frameBuffer
)

func (k frameKind) String() string {
	switch k {
	case frameTable:
		return "table"
	case frameStruct:
		return "struct"
	case frameVector:
		return "vector"
	case frameOffsetVector:
		return "offset-vector"
	case frameString:
		return "string"
	case frameBuffer:
		return "buffer"
	default:
		return "empty"
	}
}

// frame is one level of the builder's nesting stack, corresponding to one
// in-progress table, struct, vector, string, or buffer.
type frame struct {
	kind frameKind

	dataStackBase  int // data-stack cursor when this frame was entered
	dataStackLimit int // user-declared upper bound, 0 = unbounded
	alignment      int // largest alignment observed while this frame was open

	// table-frame state: where this table's vtable slots and patch entries
	// begin; EndTable truncates both stacks back to these bases.
	vtableStackBase int
	patchLogBase    int
	maxFieldID      int
	vtableHash      uint32

	// vector / offset-vector frame state.
	elementSize     int
	elementCount    int
	maxElementCount int

	// buffer-frame saved state.
	savedMinAlign int
	blockAlign    int
	identifier    [FileIdentifierLength]byte
	hasIdentifier bool
	isNested      bool
}

// enterFrame pushes a new frame, capturing the current data-stack cursor
// as this frame's base and bumping the nesting level. It fails with
// ErrTooNested if MaxLevel is configured and would be exceeded.
func (b *Builder) enterFrame(kind frameKind, align int) (*frame, error) {
	if b.opts.MaxLevel > 0 && b.level+1 > b.opts.MaxLevel {
		return nil, ErrTooNested
	}
	region := b.frames.Grow(1)
	f := &region[0]
	*f = frame{
		kind:          kind,
		dataStackBase: b.dataStack.Len(),
		alignment:     align,
	}
	b.level++
	return f, nil
}

// currentFrame returns the innermost open frame, or nil if none is open.
func (b *Builder) currentFrame() *frame {
	n := b.frames.Len()
	if n == 0 {
		return nil
	}
	return b.frames.At(n - 1)
}

// exitFrame pops the innermost frame, restoring the data stack to the
// frame's base and propagating the frame's alignment upward to its
// parent via max, so a deeply nested struct still forces the top-level
// buffer to its required alignment.
func (b *Builder) exitFrame() {
	n := b.frames.Len()
	f := b.frames.At(n - 1)
	align := f.alignment
	b.dataStack.Truncate(f.dataStackBase)
	b.frames.Truncate(n - 1)
	b.level--
	if parent := b.currentFrame(); parent != nil {
		if align > parent.alignment {
			parent.alignment = align
		}
	} else if align > b.minAlign {
		b.minAlign = align
	}
}
