// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package clint implements a driver for the Core-Local Interruptor, which
// provides the per-hart software interrupt and timer compare registers and
// the shared real time counter.
package clint

import (
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/reg"
)

// CLINT registers
const (
	MSIP     = 0x0000
	MTIMECMP = 0x4000
	MTIME    = 0xbff8

	MSIP_PENDING = 0
)

// CLINT represents the core-local interruptor.
type CLINT struct {
	// Bus is the controller register window
	Bus reg.Bus
}

func msip(h hart.ID) uint32 {
	return MSIP + uint32(h)*4
}

func mtimecmp(h hart.ID) uint32 {
	return MTIMECMP + uint32(h)*8
}

// RaiseSoftware asserts the software interrupt line of a hart.
func (c *CLINT) RaiseSoftware(h hart.ID) {
	reg.Set(c.Bus, msip(h), MSIP_PENDING)
}

// ClearSoftware deasserts the software interrupt line of a hart.
func (c *CLINT) ClearSoftware(h hart.ID) {
	reg.Clear(c.Bus, msip(h), MSIP_PENDING)
}

// SoftwarePending reports whether the software interrupt line of a hart is
// asserted.
func (c *CLINT) SoftwarePending(h hart.ID) bool {
	return reg.IsSet(c.Bus, msip(h), MSIP_PENDING)
}

// Time returns the real time counter.
func (c *CLINT) Time() uint64 {
	return c.Bus.Read64(MTIME)
}

// ResetTime sets the real time counter to zero.
func (c *CLINT) ResetTime() {
	c.Bus.Write64(MTIME, 0)
}

// SetTimeCmp sets the timer compare register of a hart, the timer interrupt
// is pending while the real time counter is greater than or equal to it.
func (c *CLINT) SetTimeCmp(h hart.ID, val uint64) {
	c.Bus.Write64(mtimecmp(h), val)
}

// TimeCmp returns the timer compare register of a hart.
func (c *CLINT) TimeCmp(h hart.ID) uint64 {
	return c.Bus.Read64(mtimecmp(h))
}
