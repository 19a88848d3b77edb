// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package simulator

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/board"
	"github.com/usbarmory/mpfs-hal/boot"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
)

const testBoard = `
harts:
  u54_1:
    beu:
      enable: 0x20
      plic: 0x20
sources:
  - id: 13
    hart: e51
    priority: 1
  - id: 91
    hart: u54_1
    priority: 1
  - id: 183
    hart: u54_1
    priority: 7
`

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)

	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}

		runtime.Gosched()
	}
}

func start(t *testing.T) (s *Simulator, stop func()) {
	b, err := board.Parse([]byte(testBoard))

	if err != nil {
		t.Fatal(err)
	}

	if s, err = New(b); err != nil {
		t.Fatal(err)
	}

	// real time counter only moves on demand
	s.Period = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)

	go func() {
		done <- s.Run(ctx)
	}()

	for _, h := range hart.Application() {
		h := h
		waitFor(t, h.String()+" release", func() bool { return s.HAL.HLS.Get(h) == boot.PassedWFI })
	}

	stop = func() {
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("simulator did not stop")
		}
	}

	return
}

func TestRun(t *testing.T) {
	s, stop := start(t)
	defer stop()

	// software interrupt
	s.HAL.IPI.Raise(hart.E51, hart.U54_2)
	waitFor(t, "software interrupt", func() bool { return s.HAL.Dispatcher.Stats(hart.U54_2).Software >= 1 })

	// external interrupt routed to U54_1
	s.SoC.PLIC.Raise(irq.MMUART(1))
	waitFor(t, "external interrupt", func() bool { return s.HAL.Dispatcher.Stats(hart.U54_1).External == 1 })

	// one shot source
	s.SoC.PLIC.Raise(irq.GPIO0)
	waitFor(t, "gpio0", func() bool { return !s.HAL.PLIC.Enabled(hart.E51, irq.GPIO0) })

	// local interrupt
	s.SoC.Harts[hart.U54_3].Assert(irq.U54MMUART.Mask(), true)
	waitFor(t, "local interrupt", func() bool { return s.HAL.Dispatcher.Stats(hart.U54_3).Local == 1 })

	waitFor(t, "local line deassertion", func() bool {
		return s.SoC.Harts[hart.U54_3].Read(csr.MIP)&irq.U54MMUART.Mask() == 0
	})

	// bus error signalled through the PLIC
	s.SoC.BEU.Record(hart.U54_1, beu.BusError, 0x1000)
	waitFor(t, "bus error", func() bool { return s.HAL.Dispatcher.Stats(hart.U54_1).External == 2 })

	waitFor(t, "bus error clear", func() bool { return s.HAL.BEU.Status(hart.U54_1).Accrued == 0 })

	// system tick
	s.SoC.CLINT.Advance(s.HAL.Ticker.Increment(hart.U54_4))
	waitFor(t, "tick", func() bool { return s.HAL.Ticker.Count(hart.U54_4) == 1 })
}

func TestFault(t *testing.T) {
	s, stop := start(t)
	defer stop()

	if err := s.HAL.Dispatcher.Inject(hart.U54_4, csr.Exception(csr.CAUSE_LOAD_ACCESS), 0x80001234); err == nil {
		t.Fatal("fault not reported")
	}

	faults := s.Faults()

	if len(faults) != 1 || faults[0].Hart != hart.U54_4 || faults[0].PC != 0x80001234 {
		t.Fatalf("faults %v", faults)
	}

	if !s.SoC.Harts[hart.U54_4].Closed() {
		t.Fatal("faulting hart not halted")
	}

	// other harts keep running
	s.HAL.IPI.Raise(hart.E51, hart.U54_1)
	waitFor(t, "software interrupt", func() bool { return s.HAL.Dispatcher.Stats(hart.U54_1).Software >= 1 })
}
