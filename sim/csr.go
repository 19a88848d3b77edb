// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim provides a register level model of the PolarFire SoC core
// complex: per-hart CSR files, PLIC, CLINT and bus error units.
//
// The models implement the same register offsets and access semantics used
// by the plic, clint and beu drivers, so that the dispatch core runs
// unmodified on a host.
package sim

import (
	"runtime"
	"sync"

	"github.com/usbarmory/mpfs-hal/csr"
)

// CSR represents the simulated CSR file of a hart.
type CSR struct {
	sync.Mutex

	cond   *sync.Cond
	regs   map[uint16]uint64
	closed bool
	wfi    int
}

// NewCSR returns a CSR file with the argument mhartid value.
func NewCSR(id uint64) (c *CSR) {
	c = &CSR{
		regs: map[uint16]uint64{
			csr.MHARTID: id,
		},
	}

	c.cond = sync.NewCond(&c.Mutex)

	return
}

// Read implements csr.File.
func (c *CSR) Read(n uint16) uint64 {
	c.Lock()
	defer c.Unlock()

	return c.regs[n]
}

// Write implements csr.File, writes to mhartid are ignored.
func (c *CSR) Write(n uint16, val uint64) {
	c.Lock()
	defer c.Unlock()

	if n == csr.MHARTID {
		return
	}

	c.regs[n] = val
	c.cond.Broadcast()
}

// Set implements csr.File.
func (c *CSR) Set(n uint16, mask uint64) {
	c.Lock()
	defer c.Unlock()

	c.regs[n] |= mask
	c.cond.Broadcast()
}

// Clear implements csr.File.
func (c *CSR) Clear(n uint16, mask uint64) {
	c.Lock()
	defer c.Unlock()

	c.regs[n] &^= mask
	c.cond.Broadcast()
}

// WaitForInterrupt implements csr.File, the calling goroutine is blocked
// until an enabled interrupt is pending, regardless of mstatus.MIE.
//
// Once the CSR file is closed the hart is considered powered off and the
// calling goroutine exits, after running its deferred calls.
func (c *CSR) WaitForInterrupt() {
	c.Lock()

	for !c.closed && c.regs[csr.MIP]&c.regs[csr.MIE] == 0 {
		c.cond.Wait()
	}

	closed := c.closed
	c.wfi++
	c.Unlock()

	if closed {
		runtime.Goexit()
	}
}

// Assert drives interrupt pending lines from a device model.
func (c *CSR) Assert(mask uint64, level bool) {
	c.Lock()
	defer c.Unlock()

	if level {
		c.regs[csr.MIP] |= mask
	} else {
		c.regs[csr.MIP] &^= mask
	}

	c.cond.Broadcast()
}

// WFI returns the number of completed wait for interrupt instructions.
func (c *CSR) WFI() int {
	c.Lock()
	defer c.Unlock()

	return c.wfi
}

// Close terminates any pending and future wait for interrupt instruction.
func (c *CSR) Close() {
	c.Lock()
	defer c.Unlock()

	c.closed = true
	c.cond.Broadcast()
}

// Closed reports whether the CSR file has been closed.
func (c *CSR) Closed() bool {
	c.Lock()
	defer c.Unlock()

	return c.closed
}
