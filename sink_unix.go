// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build !windows

package flatforge

import (
	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// msyncPosix forces the mapped region to durable storage; MMapSink.Sync
// calls it on non-Windows platforms.
func msyncPosix(data mmap.MMap) error {
	return unix.Msync([]byte(data), unix.MS_SYNC)
}
