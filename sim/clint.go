// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"math"
	"sync"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
)

// CLINT represents a simulated core-local interruptor, it implements
// reg.Bus. The real time counter only moves through Advance.
type CLINT struct {
	sync.Mutex

	harts [hart.Count]*CSR

	msip     [hart.Count]uint32
	mtimecmp [hart.Count]uint64
	mtime    uint64
}

// NewCLINT returns a CLINT driving the software and timer interrupt lines of
// the argument CSR files.
func NewCLINT(harts [hart.Count]*CSR) (c *CLINT) {
	c = &CLINT{harts: harts}

	for i := range c.mtimecmp {
		c.mtimecmp[i] = math.MaxUint64
	}

	return
}

// Advance moves the real time counter forward.
func (c *CLINT) Advance(ticks uint64) {
	c.Lock()
	defer c.Unlock()

	c.mtime += ticks
	c.update()
}

func (c *CLINT) update() {
	for _, h := range hart.All() {
		if c.harts[h] == nil {
			continue
		}

		c.harts[h].Assert(csr.MIP_MSIP, c.msip[h]&1 == 1)
		c.harts[h].Assert(csr.MIP_MTIP, c.mtime >= c.mtimecmp[h])
	}
}

func (c *CLINT) read64(off uint32) (val uint64, ok bool) {
	switch {
	case off == clint.MTIME:
		return c.mtime, true
	case off >= clint.MTIMECMP && off < clint.MTIMECMP+hart.Count*8:
		return c.mtimecmp[(off-clint.MTIMECMP)/8], true
	}

	return
}

func (c *CLINT) write64(off uint32, val uint64) {
	switch {
	case off == clint.MTIME:
		c.mtime = val
	case off >= clint.MTIMECMP && off < clint.MTIMECMP+hart.Count*8:
		c.mtimecmp[(off-clint.MTIMECMP)/8] = val
	}
}

// Read32 implements reg.Bus.
func (c *CLINT) Read32(off uint32) uint32 {
	c.Lock()
	defer c.Unlock()

	if off < clint.MSIP+hart.Count*4 {
		return c.msip[off/4]
	}

	val, _ := c.read64(off &^ 7)

	if off&4 != 0 {
		return uint32(val >> 32)
	}

	return uint32(val)
}

// Write32 implements reg.Bus, only bit 0 of MSIP registers is writable.
func (c *CLINT) Write32(off uint32, val uint32) {
	c.Lock()
	defer c.Unlock()

	if off < clint.MSIP+hart.Count*4 {
		if val&1 == 1 {
			bits.Set(&c.msip[off/4], clint.MSIP_PENDING)
		} else {
			bits.Clear(&c.msip[off/4], clint.MSIP_PENDING)
		}

		c.update()
		return
	}

	cur, ok := c.read64(off &^ 7)

	if !ok {
		return
	}

	if off&4 != 0 {
		cur = cur&0xffffffff | uint64(val)<<32
	} else {
		cur = cur&^0xffffffff | uint64(val)
	}

	c.write64(off&^7, cur)
	c.update()
}

// Read64 implements reg.Bus.
func (c *CLINT) Read64(off uint32) uint64 {
	c.Lock()
	defer c.Unlock()

	val, _ := c.read64(off)

	return val
}

// Write64 implements reg.Bus.
func (c *CLINT) Write64(off uint32, val uint64) {
	c.Lock()
	defer c.Unlock()

	c.write64(off, val)
	c.update()
}
