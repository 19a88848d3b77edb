// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tick

import (
	"errors"
	"testing"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/sim"
)

func newTicker(soc *sim.SoC, clockHz uint64, rateMs uint64) (t *Ticker) {
	t = &Ticker{
		CLINT:   &clint.CLINT{Bus: soc.CLINT},
		ClockHz: clockHz,
	}

	for _, h := range hart.All() {
		t.Harts[h] = soc.CSR(h)
		t.RateMs[h] = rateMs
	}

	return
}

func TestIncrement(t *testing.T) {
	if inc := Increment(100000000, 5); inc != 500000 {
		t.Fatalf("Increment(100 MHz, 5 ms) = %d", inc)
	}

	if inc := Increment(1000000, 10); inc != 10000 {
		t.Fatalf("Increment(1 MHz, 10 ms) = %d", inc)
	}

	if inc := Increment(999, 10); inc != 0 {
		t.Fatalf("Increment(999 Hz, 10 ms) = %d", inc)
	}
}

func TestConfigure(t *testing.T) {
	soc := sim.New()
	tk := newTicker(soc, 100000000, 5)

	soc.CLINT.Advance(1234)

	if err := tk.Configure(hart.U54_1); err != nil {
		t.Fatal(err)
	}

	if cmp := tk.CLINT.TimeCmp(hart.U54_1); cmp != 1234+500000 {
		t.Fatalf("mtimecmp = %d", cmp)
	}

	if soc.CSR(hart.U54_1).Read(csr.MIE)&csr.MIP_MTIP == 0 {
		t.Fatalf("MTIE not set")
	}

	if soc.CSR(hart.U54_2).Read(csr.MIE)&csr.MIP_MTIP != 0 {
		t.Fatalf("MTIE set on unconfigured hart")
	}

	tk.Disable(hart.U54_1)

	if soc.CSR(hart.U54_1).Read(csr.MIE)&csr.MIP_MTIP != 0 {
		t.Fatalf("MTIE not cleared")
	}
}

func TestConfigureZeroIncrement(t *testing.T) {
	soc := sim.New()
	tk := newTicker(soc, 500, 1)

	if err := tk.Configure(hart.E51); !errors.Is(err, ErrZeroIncrement) {
		t.Fatalf("expected zero increment error, got %v", err)
	}

	if soc.CSR(hart.E51).Read(csr.MIE) != 0 {
		t.Fatalf("MIE modified on error")
	}

	tk = newTicker(soc, 1000000, 0)

	if err := tk.Configure(hart.E51); !errors.Is(err, ErrZeroIncrement) {
		t.Fatalf("expected zero increment error, got %v", err)
	}
}

func TestHandleRearmsFromCurrentTime(t *testing.T) {
	soc := sim.New()
	tk := newTicker(soc, 100000000, 5)
	h := hart.U54_3
	f := soc.CSR(h)

	var mieInCallback uint64

	tk.Callbacks[h] = func() {
		mieInCallback = f.Read(csr.MIE)
		// handler latency
		soc.CLINT.Advance(777)
	}

	if err := tk.Configure(h); err != nil {
		t.Fatal(err)
	}

	soc.CLINT.Advance(500000 + 42)

	if f.Read(csr.MIP)&csr.MIP_MTIP == 0 {
		t.Fatalf("timer not pending")
	}

	tk.Handle(h)

	if mieInCallback&csr.MIP_MTIP != 0 {
		t.Fatalf("MTIE set during callback")
	}

	now := tk.CLINT.Time()

	if now != 500000+42+777 {
		t.Fatalf("mtime = %d", now)
	}

	if cmp := tk.CLINT.TimeCmp(h); cmp != now+500000 {
		t.Fatalf("mtimecmp = %d, expected %d", cmp, now+500000)
	}

	if f.Read(csr.MIE)&csr.MIP_MTIP == 0 {
		t.Fatalf("MTIE not restored")
	}

	if f.Read(csr.MIP)&csr.MIP_MTIP != 0 {
		t.Fatalf("timer still pending after re-arm")
	}

	if tk.Count(h) != 1 || tk.Count(hart.U54_1) != 0 {
		t.Fatalf("tick counts %d %d", tk.Count(h), tk.Count(hart.U54_1))
	}
}

func TestSleepMs(t *testing.T) {
	soc := sim.New()
	tk := newTicker(soc, 1000000, 10)

	var waits int

	tk.SleepMs(3, func() {
		waits++
		soc.CLINT.Advance(1000)
	})

	if waits != 3 || tk.CLINT.Time() != 3000 {
		t.Fatalf("waits:%d mtime:%d", waits, tk.CLINT.Time())
	}
}
