// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"os"

	"github.com/flatforge/flatforge/internal/log"
)

// Options tunes a Builder. The zero value is valid and matches the
// reference builder's defaults: unlimited nesting, vtable clustering
// enabled, no cache flush pressure beyond the built-in limit.
type Options struct {
	// MaxLevel bounds frame nesting depth; 0 means unlimited.
	MaxLevel int

	// DisableVtClustering suppresses emitting vtables to the back of the
	// top-level buffer; when false (the default) vtables cluster there to
	// maximize cross-table sharing.
	DisableVtClustering bool

	// VbFlushLimit is the number of cached vtable bytes after which the
	// whole vtable cache is dropped rather than grown further. 0 means a
	// sensible built-in default.
	VbFlushLimit int

	// BlockAlign pads the finished top-level buffer's length to a
	// multiple of this value. 0 means no padding beyond natural alignment.
	BlockAlign int

	// IsNested is not read by the Builder: FinishBuffer always builds an
	// unnested buffer, and a length-prefixed nested buffer is requested
	// only through StartBuffer's nested argument.
	IsNested bool

	// InitialSinkSize sizes the default in-memory sink's starting
	// allocation, growing geometrically from there.
	InitialSinkSize int

	// Logger receives diagnostic records; the Builder logs only
	// vtable-cache flushes, at info level. A nil Logger is replaced by a
	// stdout logger that forwards error-level records only.
	Logger log.Logger
}

func (o *Options) normalize() {
	if o.VbFlushLimit <= 0 {
		o.VbFlushLimit = 4 << 20
	}
	if o.InitialSinkSize <= 0 {
		o.InitialSinkSize = 1024
	}
	if o.Logger == nil {
		o.Logger = log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError))
	}
}
