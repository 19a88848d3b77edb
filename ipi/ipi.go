// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ipi implements inter-hart software interrupts over the CLINT
// MSIP registers.
//
// A raise sets a single pending bit, raises to a hart which has not yet
// cleared a previous one are coalesced.
package ipi

import (
	"sync/atomic"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/spin"
)

// IPI represents the software interrupt lines of all harts.
type IPI struct {
	// CLINT is the core-local interruptor
	CLINT *clint.CLINT
	// Harts holds the CSR file of each hart
	Harts [hart.Count]csr.File
	// Callbacks holds the software interrupt handler of each hart, when
	// not nil
	Callbacks [hart.Count]irq.Handler

	count [hart.Count]uint64
}

// Raise asserts the software interrupt of the target hart and enables the
// software interrupt of the calling one.
func (p *IPI) Raise(from hart.ID, target hart.ID) {
	p.Harts[from].Set(csr.MIE, csr.MIP_MSIP)
	p.CLINT.RaiseSoftware(target)
}

// Clear deasserts the software interrupt of a hart.
func (p *IPI) Clear(h hart.ID) {
	p.CLINT.ClearSoftware(h)
}

// Pending reports whether the software interrupt of a hart is asserted.
func (p *IPI) Pending(h hart.ID) bool {
	return p.CLINT.SoftwarePending(h)
}

// Handle services the software interrupt of a hart, the hart callback is
// run before the interrupt is cleared.
func (p *IPI) Handle(h hart.ID) {
	if fn := p.Callbacks[h]; fn != nil {
		fn()
	}

	atomic.AddUint64(&p.count[h], 1)
	p.Clear(h)
}

// Count returns the number of software interrupts serviced by a hart.
func (p *IPI) Count(h hart.ID) uint64 {
	return atomic.LoadUint64(&p.count[h])
}

// Wait idles a hart until its software interrupt is raised, with only the
// software interrupt enabled. The interrupt is cleared once observed.
func (p *IPI) Wait(h hart.ID) {
	f := p.Harts[h]

	p.Clear(h)
	f.Write(csr.MIE, csr.MIP_MSIP)

	spin.Until(func() bool {
		return f.Read(csr.MIP)&csr.MIP_MSIP != 0
	}, f.WaitForInterrupt)

	p.Clear(h)
}
