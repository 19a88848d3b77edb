// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package beu_test

import (
	"testing"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/sim"
)

func TestEvents(t *testing.T) {
	for _, code := range []uint64{2, 3, 5, 6, 7} {
		e, err := beu.ParseEvent(code)

		if err != nil || uint64(e) != code {
			t.Errorf("ParseEvent(%d) = %s, %v", code, e, err)
		}
	}

	for _, code := range []uint64{0, 1, 4, 8, 64} {
		if _, err := beu.ParseEvent(code); err == nil {
			t.Errorf("ParseEvent(%d) accepted invalid event", code)
		}
	}

	if beu.BusError.Mask() != 0x20 {
		t.Fatalf("mask %#x", beu.BusError.Mask())
	}
}

func TestInit(t *testing.T) {
	soc := sim.New()
	b := &beu.BEU{Bus: soc.BEU}

	var cfg [hart.Count]beu.Config

	cfg[hart.U54_3] = beu.Config{
		Enable: beu.DCacheUncorrectable.Mask(),
		PLIC:   beu.DCacheUncorrectable.Mask(),
		Local:  beu.DCacheUncorrectable.Mask(),
	}

	// stale state from before reset
	soc.BEU.Write64(uint32(hart.U54_3)*beu.STRIDE+beu.CAUSE, 7)

	b.Init(cfg)

	if s := b.Status(hart.U54_3); s.Cause != beu.None || s.Accrued != 0 {
		t.Fatalf("status not reset: %s", s)
	}

	soc.BEU.Record(hart.U54_3, beu.BusError, 0x1000)

	if s := b.Status(hart.U54_3); s.Cause != beu.None {
		t.Fatalf("disabled event recorded: %s", s)
	}

	soc.BEU.Record(hart.U54_3, beu.DCacheUncorrectable, 0x2000)
	soc.BEU.Record(hart.U54_3, beu.DCacheUncorrectable, 0x3000)

	s := b.Status(hart.U54_3)

	if s.Cause != beu.DCacheUncorrectable || s.Value != 0x2000 || s.Accrued != beu.DCacheUncorrectable.Mask() {
		t.Fatalf("status %s", s)
	}

	if !soc.BEU.LocalPending(hart.U54_3) || soc.BEU.LocalPending(hart.U54_2) {
		t.Fatal("unexpected local interrupt state")
	}

	p := &plic.PLIC{Bus: soc.PLIC}

	if !p.IsPending(irq.BusErrorUnit(hart.U54_3)) || p.IsPending(irq.BusErrorUnit(hart.U54_2)) {
		t.Fatal("unexpected PLIC source state")
	}
}

func TestHandle(t *testing.T) {
	soc := sim.New()
	b := &beu.BEU{Bus: soc.BEU}

	var cfg [hart.Count]beu.Config

	for h := range cfg {
		cfg[h].Enable = beu.BusError.Mask()
	}

	b.Init(cfg)

	// default handler
	soc.BEU.Record(hart.E51, beu.BusError, 0x10)
	b.Handle(hart.E51)

	if s := b.Status(hart.E51); s.Cause != beu.None || s.Accrued != 0 {
		t.Fatalf("status not cleared: %s", s)
	}

	var got []beu.Status
	var harts []hart.ID

	b.Register(beu.HandlerFunc(func(h hart.ID, s beu.Status) {
		harts = append(harts, h)
		got = append(got, s)
	}))

	soc.BEU.Record(hart.U54_4, beu.BusError, 0x20)
	b.Handle(hart.U54_4)

	if len(got) != 1 || harts[0] != hart.U54_4 || got[0].Cause != beu.BusError || got[0].Value != 0x20 {
		t.Fatalf("handler invoked with %v %v", harts, got)
	}

	b.Register(nil)
	b.Handle(hart.U54_4)

	if len(got) != 1 {
		t.Fatal("handler not restored to default")
	}
}
