// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync/atomic"
	"unsafe"
)

// MMIO represents a physical register window starting at Base, it must only
// be used when running on the target.
type MMIO struct {
	Base uint
}

func (m MMIO) addr(off uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(m.Base) + uintptr(off))
}

// Read32 implements Bus.
func (m MMIO) Read32(off uint32) uint32 {
	return atomic.LoadUint32((*uint32)(m.addr(off)))
}

// Write32 implements Bus.
func (m MMIO) Write32(off uint32, val uint32) {
	atomic.StoreUint32((*uint32)(m.addr(off)), val)
}

// Read64 implements Bus.
func (m MMIO) Read64(off uint32) uint64 {
	return atomic.LoadUint64((*uint64)(m.addr(off)))
}

// Write64 implements Bus.
func (m MMIO) Write64(off uint32, val uint64) {
	atomic.StoreUint64((*uint64)(m.addr(off)), val)
}
