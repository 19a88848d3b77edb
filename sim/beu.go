// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"sync"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
)

const beuRegs = beu.LOCAL_INT/8 + 1

// BEU represents the simulated bus error units of all harts, it implements
// reg.Bus over the whole window.
type BEU struct {
	sync.Mutex

	plic *PLIC
	regs [hart.Count][beuRegs]uint64
}

// NewBEU returns bus error units signalling PLIC sources on the argument
// controller.
func NewBEU(p *PLIC) *BEU {
	return &BEU{plic: p}
}

func (b *BEU) decode(off uint32) (h hart.ID, r uint32, ok bool) {
	h = hart.ID(off / beu.STRIDE)
	r = (off % beu.STRIDE) / 8

	return h, r, h.Valid() && r < beuRegs
}

// Record registers a bus error event at the argument address on a hart
// unit. Disabled events are dropped, the first enabled event is latched in
// CAUSE and VALUE until cleared.
func (b *BEU) Record(h hart.ID, e beu.Event, addr uint64) {
	b.Lock()
	defer b.Unlock()

	r := &b.regs[h]

	if r[beu.ENABLE/8]&e.Mask() == 0 {
		return
	}

	if r[beu.CAUSE/8] == 0 {
		r[beu.CAUSE/8] = uint64(e)
		r[beu.VALUE/8] = addr
	}

	r[beu.ACCRUED/8] |= e.Mask()

	if r[beu.ACCRUED/8]&r[beu.PLIC_INT/8] != 0 && b.plic != nil {
		b.plic.Raise(irq.BusErrorUnit(h))
	}
}

// LocalPending reports whether a hart unit asserts its local interrupt.
func (b *BEU) LocalPending(h hart.ID) bool {
	b.Lock()
	defer b.Unlock()

	r := &b.regs[h]

	return r[beu.ACCRUED/8]&r[beu.LOCAL_INT/8] != 0
}

// Read64 implements reg.Bus.
func (b *BEU) Read64(off uint32) uint64 {
	b.Lock()
	defer b.Unlock()

	if h, r, ok := b.decode(off); ok {
		return b.regs[h][r]
	}

	return 0
}

// Write64 implements reg.Bus.
func (b *BEU) Write64(off uint32, val uint64) {
	b.Lock()
	defer b.Unlock()

	if h, r, ok := b.decode(off); ok {
		b.regs[h][r] = val
	}
}

// Read32 implements reg.Bus.
func (b *BEU) Read32(off uint32) uint32 {
	val := b.Read64(off &^ 7)

	if off&4 != 0 {
		return uint32(val >> 32)
	}

	return uint32(val)
}

// Write32 implements reg.Bus.
func (b *BEU) Write32(off uint32, val uint32) {
	cur := b.Read64(off &^ 7)

	if off&4 != 0 {
		cur = cur&0xffffffff | uint64(val)<<32
	} else {
		cur = cur&^0xffffffff | uint64(val)
	}

	b.Write64(off&^7, cur)
}
