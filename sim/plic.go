// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"sync"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/plic"
)

const plicWords = (plic.NumSources + 31) / 32

// PLIC represents a simulated platform level interrupt controller, it
// implements reg.Bus.
type PLIC struct {
	sync.Mutex

	harts [hart.Count]*CSR

	priority  [plic.NumSources]uint32
	pending   [plicWords]uint32
	enable    [plic.NumContexts][plicWords]uint32
	threshold [plic.NumContexts]uint32
	inflight  [plic.NumSources]bool

	claims    [plic.NumContexts]int
	completes [plic.NumContexts]int
}

// NewPLIC returns a PLIC driving the external interrupt line of the
// argument CSR files.
func NewPLIC(harts [hart.Count]*CSR) *PLIC {
	return &PLIC{harts: harts}
}

// Raise asserts an interrupt source.
func (p *PLIC) Raise(id uint32) {
	if id == plic.Invalid || id >= plic.NumSources {
		return
	}

	p.Lock()
	defer p.Unlock()

	bits.Set(&p.pending[id/32], int(id%32))
	p.update()
}

// InFlight reports whether a source has been claimed and not yet completed.
func (p *PLIC) InFlight(id uint32) bool {
	p.Lock()
	defer p.Unlock()

	return id < plic.NumSources && p.inflight[id]
}

// Claims returns the number of non-empty claims and of completions performed
// on the hart machine context.
func (p *PLIC) Claims(h hart.ID) (claims int, completes int) {
	p.Lock()
	defer p.Unlock()

	ctx := plic.MachineContext(h)

	return p.claims[ctx], p.completes[ctx]
}

func (p *PLIC) isPending(id uint32) bool {
	return p.pending[id/32]&(1<<(id%32)) != 0
}

func (p *PLIC) isEnabled(ctx int, id uint32) bool {
	return p.enable[ctx][id/32]&(1<<(id%32)) != 0
}

// best returns the highest priority claimable source, ties are won by the
// lowest source ID. A source in flight is held pending until completed.
func (p *PLIC) best(ctx int) (id uint32) {
	var max uint32

	for i := uint32(1); i < plic.NumSources; i++ {
		if p.inflight[i] || !p.isPending(i) || !p.isEnabled(ctx, i) {
			continue
		}

		if prio := p.priority[i]; prio > p.threshold[ctx] && prio > max {
			id = i
			max = prio
		}
	}

	return
}

func (p *PLIC) update() {
	for _, h := range hart.All() {
		if p.harts[h] == nil {
			continue
		}

		p.harts[h].Assert(csr.MIP_MEIP, p.best(plic.MachineContext(h)) != plic.Invalid)
	}
}

func (p *PLIC) claim(ctx int) (id uint32) {
	if id = p.best(ctx); id == plic.Invalid {
		return
	}

	bits.Clear(&p.pending[id/32], int(id%32))
	p.inflight[id] = true
	p.claims[ctx]++

	p.update()

	return
}

func (p *PLIC) complete(ctx int, id uint32) {
	if id == plic.Invalid || id >= plic.NumSources {
		return
	}

	p.inflight[id] = false
	p.completes[ctx]++

	p.update()
}

func decodeContext(off uint32) (ctx int, r uint32, ok bool) {
	off -= plic.CONTEXT
	ctx = int(off / plic.CONTEXT_STRIDE)
	r = off % plic.CONTEXT_STRIDE

	return ctx, r, ctx < plic.NumContexts
}

func decodeEnable(off uint32) (ctx int, w uint32, ok bool) {
	off -= plic.ENABLE
	ctx = int(off / plic.ENABLE_STRIDE)
	w = (off % plic.ENABLE_STRIDE) / 4

	return ctx, w, ctx < plic.NumContexts && w < plicWords
}

// Read32 implements reg.Bus, reading a claim register claims the returned
// source.
func (p *PLIC) Read32(off uint32) (val uint32) {
	p.Lock()
	defer p.Unlock()

	switch {
	case off < plic.PENDING:
		if id := off / 4; id < plic.NumSources {
			val = p.priority[id]
		}
	case off < plic.ENABLE:
		if w := (off - plic.PENDING) / 4; w < plicWords {
			val = p.pending[w]
		}
	case off < plic.CONTEXT:
		if ctx, w, ok := decodeEnable(off); ok {
			val = p.enable[ctx][w]
		}
	default:
		ctx, r, ok := decodeContext(off)

		if !ok {
			break
		}

		switch r {
		case plic.THRESHOLD:
			val = p.threshold[ctx]
		case plic.CLAIM:
			val = p.claim(ctx)
		}
	}

	return
}

// Write32 implements reg.Bus, writing a claim register completes the
// argument source.
func (p *PLIC) Write32(off uint32, val uint32) {
	p.Lock()
	defer p.Unlock()

	switch {
	case off < plic.PENDING:
		if id := off / 4; id > 0 && id < plic.NumSources {
			p.priority[id] = val & plic.MaxPriority
		}
	case off < plic.ENABLE:
		// read-only
		return
	case off < plic.CONTEXT:
		if ctx, w, ok := decodeEnable(off); ok {
			p.enable[ctx][w] = val
		}
	default:
		ctx, r, ok := decodeContext(off)

		if !ok {
			return
		}

		switch r {
		case plic.THRESHOLD:
			p.threshold[ctx] = val & plic.MaxPriority
		case plic.CLAIM:
			p.complete(ctx, val)
			return
		}
	}

	p.update()
}

// Read64 implements reg.Bus.
func (p *PLIC) Read64(off uint32) uint64 {
	return uint64(p.Read32(off)) | uint64(p.Read32(off+4))<<32
}

// Write64 implements reg.Bus.
func (p *PLIC) Write64(off uint32, val uint64) {
	p.Write32(off, uint32(val))
	p.Write32(off+4, uint32(val>>32))
}
