// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipi

import (
	"runtime"
	"testing"
	"time"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/sim"
)

func newIPI(soc *sim.SoC) (p *IPI, bus *sim.Recorder) {
	bus = &sim.Recorder{Bus: soc.CLINT}
	p = &IPI{CLINT: &clint.CLINT{Bus: bus}}

	for _, h := range hart.All() {
		p.Harts[h] = soc.CSR(h)
	}

	return
}

func TestRaiseClearTouchOneBit(t *testing.T) {
	soc := sim.New()
	p, bus := newIPI(soc)

	for _, target := range hart.All() {
		bus.Reset()

		p.Raise(hart.E51, target)

		writes := bus.Writes()

		if len(writes) != 1 || writes[0].Off != uint32(clint.MSIP+4*target) || writes[0].Val != 1 {
			t.Fatalf("raise %s: writes %v", target, writes)
		}

		for _, h := range hart.All() {
			if p.Pending(h) != (h == target) {
				t.Fatalf("raise %s: %s pending %v", target, h, p.Pending(h))
			}

			if pending := soc.CSR(h).Read(csr.MIP)&csr.MIP_MSIP != 0; pending != (h == target) {
				t.Fatalf("raise %s: %s MIP.MSIP %v", target, h, pending)
			}
		}

		bus.Reset()

		p.Clear(target)

		writes = bus.Writes()

		if len(writes) != 1 || writes[0].Off != uint32(clint.MSIP+4*target) || writes[0].Val != 0 {
			t.Fatalf("clear %s: writes %v", target, writes)
		}

		if p.Pending(target) {
			t.Fatalf("clear %s: still pending", target)
		}
	}

	if soc.CSR(hart.E51).Read(csr.MIE) != csr.MIP_MSIP {
		t.Fatalf("raise did not enable MSIE on the calling hart")
	}

	if soc.CSR(hart.U54_1).Read(csr.MIE) != 0 {
		t.Fatalf("raise enabled MSIE on the target hart")
	}
}

func TestHandleCoalesced(t *testing.T) {
	soc := sim.New()
	p, _ := newIPI(soc)

	var calls int
	var pendingInCallback bool

	p.Callbacks[hart.U54_4] = func() {
		calls++
		pendingInCallback = p.Pending(hart.U54_4)
	}

	p.Raise(hart.U54_1, hart.U54_4)
	p.Raise(hart.U54_2, hart.U54_4)

	p.Handle(hart.U54_4)

	if calls != 1 || !pendingInCallback {
		t.Fatalf("calls:%d pending:%v", calls, pendingInCallback)
	}

	if p.Pending(hart.U54_4) {
		t.Fatalf("interrupt not cleared after handler")
	}

	if p.Count(hart.U54_4) != 1 {
		t.Fatalf("count %d", p.Count(hart.U54_4))
	}
}

func TestWaitWake(t *testing.T) {
	soc := sim.New()
	p, _ := newIPI(soc)
	c := soc.Harts[hart.U54_1]

	// stale interrupt, discarded on wait entry
	p.Raise(hart.E51, hart.U54_1)

	done := make(chan struct{})

	go func() {
		p.Wait(hart.U54_1)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)

	for c.Read(csr.MIE) != csr.MIP_MSIP || p.Pending(hart.U54_1) {
		if time.Now().After(deadline) {
			t.Fatal("hart did not enter wait")
		}

		runtime.Gosched()
	}

	select {
	case <-done:
		t.Fatal("hart woke without interrupt")
	case <-time.After(10 * time.Millisecond):
	}

	p.Raise(hart.E51, hart.U54_1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hart did not wake")
	}

	if p.Pending(hart.U54_1) {
		t.Fatal("interrupt not cleared after wake")
	}

	if c.WFI() == 0 {
		t.Fatal("hart did not execute wfi")
	}
}
