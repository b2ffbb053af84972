// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build windows

package flatforge

import mmap "github.com/edsrzf/mmap-go"

// msyncPosix is unused on Windows; MMapSink.Sync calls data.Flush instead.
func msyncPosix(data mmap.MMap) error {
	return data.Flush()
}
