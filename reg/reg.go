// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for memory mapped register access.
//
// Controller drivers address their registers by offset through the Bus
// interface, MMIO implements it over physical memory while the sim package
// models the same offsets in software.
package reg

import (
	"github.com/usbarmory/tamago/bits"
)

// Bus represents a register window of a memory mapped controller.
type Bus interface {
	Read32(off uint32) uint32
	Write32(off uint32, val uint32)
	Read64(off uint32) uint64
	Write64(off uint32, val uint64)
}

// Get returns a register field.
func Get(b Bus, off uint32, pos int, mask int) uint32 {
	return (b.Read32(off) >> pos) & uint32(mask)
}

// IsSet reports whether a register bit is set.
func IsSet(b Bus, off uint32, pos int) bool {
	return Get(b, off, pos, 1) == 1
}

// Set sets a register bit.
func Set(b Bus, off uint32, pos int) {
	val := b.Read32(off)
	bits.Set(&val, pos)
	b.Write32(off, val)
}

// Clear clears a register bit.
func Clear(b Bus, off uint32, pos int) {
	val := b.Read32(off)
	bits.Clear(&val, pos)
	b.Write32(off, val)
}

// SetTo modifies a register bit.
func SetTo(b Bus, off uint32, pos int, val bool) {
	if val {
		Set(b, off, pos)
	} else {
		Clear(b, off, pos)
	}
}
