// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package plic implements a driver for the Platform-Level Interrupt
// Controller shared by the PolarFire SoC harts.
//
// Each hart has a machine mode context, U54 harts also have a supervisor
// mode context. Source 0 is reserved and never claimed.
package plic

import (
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/reg"
)

// PLIC registers
const (
	PRIORITY = 0x000000
	PENDING  = 0x001000

	ENABLE        = 0x002000
	ENABLE_STRIDE = 0x80

	CONTEXT        = 0x200000
	CONTEXT_STRIDE = 0x1000
	THRESHOLD      = 0x00
	CLAIM          = 0x04
)

const (
	// NumSources is the number of interrupt sources, including the
	// reserved source 0.
	NumSources = 187
	// NumContexts is the number of hart contexts.
	NumContexts = 9
	// MaxPriority is the highest priority and threshold value, a
	// threshold of MaxPriority masks every source.
	MaxPriority = 7

	enableWords = (NumSources + 31) / 32
)

// Invalid is the claim value returned when no interrupt is pending.
const Invalid = 0

var machineContext = [hart.Count]int{0, 1, 3, 5, 7}

// MachineContext returns the machine mode context of a hart.
func MachineContext(h hart.ID) int {
	return machineContext[h]
}

// SupervisorContext returns the supervisor mode context of a hart, the
// monitor hart has none.
func SupervisorContext(h hart.ID) (ctx int, ok bool) {
	if h.Monitor() {
		return
	}

	return machineContext[h] + 1, true
}

// PLIC represents the interrupt controller.
type PLIC struct {
	// Bus is the controller register window
	Bus reg.Bus
}

func enable(ctx int, id uint32) (off uint32, pos int) {
	off = ENABLE + uint32(ctx)*ENABLE_STRIDE + (id/32)*4
	pos = int(id % 32)
	return
}

func contextBase(ctx int) uint32 {
	return CONTEXT + uint32(ctx)*CONTEXT_STRIDE
}

// Claim returns the highest priority pending interrupt of the hart machine
// context, or Invalid. A claimed source is no longer pending and must be
// completed.
func (p *PLIC) Claim(h hart.ID) uint32 {
	return p.Bus.Read32(contextBase(machineContext[h]) + CLAIM)
}

// Complete signals the end of servicing of a claimed interrupt.
func (p *PLIC) Complete(h hart.ID, id uint32) {
	p.Bus.Write32(contextBase(machineContext[h])+CLAIM, id)
}

// Enable enables an interrupt source on the hart machine context.
func (p *PLIC) Enable(h hart.ID, id uint32) {
	if id == Invalid || id >= NumSources {
		return
	}

	off, pos := enable(machineContext[h], id)
	reg.Set(p.Bus, off, pos)
}

// Disable disables an interrupt source on the hart machine context. It must
// not be used from within an external interrupt handler, which returns
// irq.Disable instead.
func (p *PLIC) Disable(h hart.ID, id uint32) {
	if id == Invalid || id >= NumSources {
		return
	}

	off, pos := enable(machineContext[h], id)
	reg.Clear(p.Bus, off, pos)
}

// Enabled reports whether an interrupt source is enabled on the hart machine
// context.
func (p *PLIC) Enabled(h hart.ID, id uint32) bool {
	if id == Invalid || id >= NumSources {
		return false
	}

	off, pos := enable(machineContext[h], id)
	return reg.IsSet(p.Bus, off, pos)
}

// SetPriority sets the priority of an interrupt source, out of range
// sources are ignored.
func (p *PLIC) SetPriority(id uint32, priority uint32) {
	if id == Invalid || id >= NumSources {
		return
	}

	p.Bus.Write32(PRIORITY+id*4, priority&MaxPriority)
}

// Priority returns the priority of an interrupt source.
func (p *PLIC) Priority(id uint32) uint32 {
	if id == Invalid || id >= NumSources {
		return 0
	}

	return p.Bus.Read32(PRIORITY + id*4)
}

// SetThreshold sets the priority threshold of the hart machine context,
// sources with a priority less than or equal to it are masked.
func (p *PLIC) SetThreshold(h hart.ID, threshold uint32) {
	p.setThreshold(machineContext[h], threshold)
}

// Threshold returns the priority threshold of the hart machine context.
func (p *PLIC) Threshold(h hart.ID) uint32 {
	return p.Bus.Read32(contextBase(machineContext[h]) + THRESHOLD)
}

func (p *PLIC) setThreshold(ctx int, threshold uint32) {
	if threshold > MaxPriority {
		threshold = MaxPriority
	}

	p.Bus.Write32(contextBase(ctx)+THRESHOLD, threshold)
}

// IsPending reports whether an interrupt source is pending.
func (p *PLIC) IsPending(id uint32) bool {
	if id >= NumSources {
		return false
	}

	return reg.IsSet(p.Bus, PENDING+(id/32)*4, int(id%32))
}

// ClearPending drains every interrupt claimable by the hart machine context,
// returning the number of completed sources.
func (p *PLIC) ClearPending(h hart.ID) (n int) {
	for id := p.Claim(h); id != Invalid; id = p.Claim(h) {
		p.Complete(h, id)
		n++
	}

	return
}

func (p *PLIC) clearEnables(ctx int) {
	for i := uint32(0); i < enableWords; i++ {
		p.Bus.Write32(ENABLE+uint32(ctx)*ENABLE_STRIDE+i*4, 0)
	}
}

// InitOnReset sets every source priority to 0, masks every context with the
// maximum threshold, clears all enables and drains pending claims of the
// calling hart. It must be run once, by a single hart, before any InitHart.
func (p *PLIC) InitOnReset(h hart.ID) {
	for id := uint32(1); id < NumSources; id++ {
		p.Bus.Write32(PRIORITY+id*4, 0)
	}

	for ctx := 0; ctx < NumContexts; ctx++ {
		p.setThreshold(ctx, MaxPriority)
	}

	for ctx := 0; ctx < NumContexts; ctx++ {
		p.clearEnables(ctx)
	}

	p.ClearPending(h)
}

// InitHart prepares the hart contexts for machine mode external interrupt
// delivery: all enables are cleared, the machine threshold is opened, the
// supervisor context is masked and MIE.MEIE is set on the hart CSR file.
func (p *PLIC) InitHart(h hart.ID, f csr.File) {
	p.clearEnables(machineContext[h])
	p.setThreshold(machineContext[h], 0)

	if ctx, ok := SupervisorContext(h); ok {
		p.clearEnables(ctx)
		p.setThreshold(ctx, MaxPriority)
	}

	f.Set(csr.MIE, csr.MIP_MEIP)
}
