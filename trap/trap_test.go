// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/sim"
)

type fixture struct {
	soc    *sim.SoC
	bus    *sim.Recorder
	plic   *plic.PLIC
	d      *Dispatcher
	halted []*Fault

	software []hart.ID
	timer    []hart.ID
	busError []hart.ID
}

func newFixture(t *testing.T, layout *irq.Layout) (fx *fixture) {
	fx = &fixture{soc: sim.New()}
	fx.bus = &sim.Recorder{Bus: fx.soc.PLIC}
	fx.plic = &plic.PLIC{Bus: fx.bus}

	local, ext, err := layout.Build()

	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		PLIC:     fx.plic,
		Local:    local,
		External: ext,
		Software: func(h hart.ID) { fx.software = append(fx.software, h) },
		Timer:    func(h hart.ID) { fx.timer = append(fx.timer, h) },
		BusError: func(h hart.ID) { fx.busError = append(fx.busError, h) },
		Halt:     func(f *Fault) { fx.halted = append(fx.halted, f) },
	}

	for _, h := range hart.All() {
		cfg.Harts[h] = fx.soc.CSR(h)
	}

	if fx.d, err = New(cfg); err != nil {
		t.Fatal(err)
	}

	return
}

func (fx *fixture) claimWrites(h hart.ID) (ids []uint64) {
	off := uint32(plic.CONTEXT + plic.MachineContext(h)*plic.CONTEXT_STRIDE + plic.CLAIM)

	for _, a := range fx.bus.Writes() {
		if a.Off == off {
			ids = append(ids, a.Val)
		}
	}

	return
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFatalCauses(t *testing.T) {
	fx := newFixture(t, &irq.Layout{})

	causes := []csr.Cause{
		csr.Exception(csr.CAUSE_ILLEGAL_INSTRUCTION),
		csr.Exception(csr.CAUSE_BREAKPOINT),
		csr.Exception(csr.CAUSE_MACHINE_ECALL),
		csr.Exception(csr.CAUSE_LOAD_PAGE_FAULT),
		csr.Interrupt(1),
		csr.Interrupt(5),
		csr.Interrupt(9),
		csr.Interrupt(12),
		csr.Interrupt(15),
		csr.Interrupt(64),
		csr.Interrupt(127),
		csr.Interrupt(129),
	}

	frame := &Frame{}
	frame[2] = 0x80001000

	for i, cause := range causes {
		err := fx.d.Inject(hart.U54_2, cause, 0x80000100)

		var fault *Fault

		if !errors.As(err, &fault) {
			t.Fatalf("%s: expected fault, got %v", cause, err)
		}

		if fault.Hart != hart.U54_2 || fault.Cause != cause || fault.PC != 0x80000100 {
			t.Errorf("%s: unexpected fault %v", cause, fault)
		}

		if len(fx.halted) != i+1 || fx.halted[i] != fault {
			t.Fatalf("%s: halt not invoked", cause)
		}
	}

	fx.soc.CSR(hart.E51).Write(csr.MCAUSE, uint64(csr.Exception(csr.CAUSE_STORE_ACCESS)))
	fx.soc.CSR(hart.E51).Write(csr.MTVAL, 0xdead0000)

	err := fx.d.Handle(hart.E51, frame, 0x80000200)

	var fault *Fault

	if !errors.As(err, &fault) {
		t.Fatalf("expected fault, got %v", err)
	}

	if fault.Value != 0xdead0000 || fault.Frame == nil || fault.Frame[2] != 0x80001000 {
		t.Errorf("unexpected fault %s", fault.Dump())
	}

	frame[2] = 0

	if fault.Frame[2] != 0x80001000 {
		t.Errorf("register snapshot aliases trap frame")
	}

	if s := fx.d.Stats(hart.U54_2); s.Fatal != uint64(len(causes)) {
		t.Errorf("unexpected stats %v", s)
	}

	if len(fx.bus.Log) != 0 {
		t.Errorf("fatal path accessed the PLIC: %v", fx.bus.Log)
	}
}

func TestLocalDispatch(t *testing.T) {
	var calls [hart.Count][]irq.LocalIndex

	layout := &irq.Layout{}

	for _, h := range hart.All() {
		h := h

		for _, i := range []irq.LocalIndex{0, 11, 47} {
			i := i
			layout.BindLocal(h, i, func() { calls[h] = append(calls[h], i) })
		}
	}

	fx := newFixture(t, layout)

	if err := fx.d.Inject(hart.U54_3, csr.Interrupt(63), 0); err != nil {
		t.Fatal(err)
	}

	if err := fx.d.Inject(hart.E51, csr.Interrupt(16), 0); err != nil {
		t.Fatal(err)
	}

	if err := fx.d.Inject(hart.E51, csr.Interrupt(27), 0); err != nil {
		t.Fatal(err)
	}

	// unbound line
	if err := fx.d.Inject(hart.U54_1, csr.Interrupt(20), 0); err != nil {
		t.Fatal(err)
	}

	if len(calls[hart.U54_3]) != 1 || calls[hart.U54_3][0] != 47 {
		t.Errorf("U54_3 calls %v", calls[hart.U54_3])
	}

	if len(calls[hart.E51]) != 2 || calls[hart.E51][0] != 0 || calls[hart.E51][1] != 11 {
		t.Errorf("E51 calls %v", calls[hart.E51])
	}

	for _, h := range []hart.ID{hart.U54_1, hart.U54_2, hart.U54_4} {
		if len(calls[h]) != 0 {
			t.Errorf("%s calls %v", h, calls[h])
		}
	}

	if s := fx.d.Stats(hart.E51); s.Local != 2 {
		t.Errorf("unexpected stats %v", s)
	}
}

func TestSpuriousClaim(t *testing.T) {
	fx := newFixture(t, &irq.Layout{})

	if err := fx.d.Inject(hart.U54_1, csr.Interrupt(csr.IRQ_M_EXT), 0); err != nil {
		t.Fatal(err)
	}

	if ids := fx.claimWrites(hart.U54_1); len(ids) != 0 {
		t.Fatalf("spurious claim completed %v", ids)
	}

	if len(fx.bus.Writes()) != 0 {
		t.Fatalf("spurious claim wrote %v", fx.bus.Writes())
	}

	if s := fx.d.Stats(hart.U54_1); s.Spurious != 1 || s.External != 0 {
		t.Fatalf("unexpected stats %v", s)
	}
}

func TestCompleteOnce(t *testing.T) {
	const id = irq.MMUART0 + 1

	var order []string
	var fx *fixture

	action := irq.KeepEnabled
	h := hart.U54_1

	layout := &irq.Layout{}
	layout.BindExternal(id, func() irq.Action {
		order = append(order, "handler")

		// the source is claimed and not yet completed
		if !fx.soc.PLIC.InFlight(id) {
			t.Error("source not in flight within handler")
		}

		if ids := fx.claimWrites(h); len(ids) != 0 {
			t.Errorf("completed before handler, %v", ids)
		}

		return action
	})

	fx = newFixture(t, layout)

	fx.plic.InitOnReset(hart.E51)
	fx.plic.InitHart(h, fx.soc.CSR(h))
	fx.plic.SetPriority(id, 2)
	fx.plic.Enable(h, id)

	fx.soc.PLIC.Raise(id)
	fx.bus.Reset()

	if err := fx.d.Inject(h, csr.Interrupt(csr.IRQ_M_EXT), 0); err != nil {
		t.Fatal(err)
	}

	if ids := fx.claimWrites(h); len(ids) != 1 || ids[0] != id {
		t.Fatalf("completions %v", ids)
	}

	if len(fx.bus.Writes()) != 1 {
		t.Fatalf("unexpected writes %v", fx.bus.Writes())
	}

	if !fx.plic.Enabled(h, id) || fx.soc.PLIC.InFlight(id) {
		t.Fatalf("source state after keep-enabled completion")
	}

	// disable path: complete first, then mask once
	action = irq.Disable
	fx.soc.PLIC.Raise(id)
	fx.bus.Reset()

	if err := fx.d.Inject(h, csr.Interrupt(csr.IRQ_M_EXT), 0); err != nil {
		t.Fatal(err)
	}

	writes := fx.bus.Writes()

	if len(writes) != 2 {
		t.Fatalf("unexpected writes %v", writes)
	}

	if ids := fx.claimWrites(h); len(ids) != 1 || ids[0] != id {
		t.Fatalf("completions %v", ids)
	}

	enableWord := uint32(plic.ENABLE + plic.MachineContext(h)*plic.ENABLE_STRIDE + (id/32)*4)

	if writes[1].Off != enableWord || writes[1].Val&(1<<(id%32)) != 0 {
		t.Fatalf("disable did not follow completion: %v", writes)
	}

	if fx.plic.Enabled(h, id) {
		t.Fatalf("source still enabled")
	}

	if len(order) != 2 {
		t.Fatalf("handler calls %v", order)
	}

	if s := fx.d.Stats(h); s.External != 2 || s.Spurious != 0 {
		t.Fatalf("unexpected stats %v", s)
	}
}

func TestInjectSerialized(t *testing.T) {
	fx := newFixture(t, &irq.Layout{})
	h := hart.U54_1
	c := fx.soc.Harts[h]

	// software interrupt left pending, serviced on every poll
	c.Set(csr.MIE, csr.MIP_MSIP)
	c.Assert(csr.MIP_MSIP, true)

	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		for {
			select {
			case <-stop:
				done <- nil
				return
			default:
			}

			if _, err := fx.d.Poll(h); err != nil {
				done <- err
				return
			}
		}
	}()

	cause := csr.Exception(csr.CAUSE_ILLEGAL_INSTRUCTION)

	var err error

	for i := 0; i < 200 && err == nil; i++ {
		var fault *Fault

		if e := fx.d.Inject(h, cause, 0x80000000); !errors.As(e, &fault) || fault.Cause != cause {
			err = fmt.Errorf("injection %d returned %v", i, e)
		}
	}

	close(stop)

	if perr := <-done; perr != nil {
		t.Fatalf("poll, %v", perr)
	}

	if err != nil {
		t.Fatal(err)
	}

	if len(fx.halted) != 200 {
		t.Fatalf("halt calls %d", len(fx.halted))
	}

	if serviced, err := fx.d.Poll(h); !serviced || err != nil {
		t.Fatalf("Poll = %v, %v", serviced, err)
	}

	if s := fx.d.Stats(h); s.Software == 0 || s.Software != uint64(len(fx.software)) {
		t.Fatalf("software stats %v, calls %d", s, len(fx.software))
	}
}

func TestUnboundSourceKeepsEnabled(t *testing.T) {
	const id = irq.F2M

	fx := newFixture(t, &irq.Layout{})
	h := hart.U54_4

	fx.plic.InitOnReset(hart.E51)
	fx.plic.InitHart(h, fx.soc.CSR(h))
	fx.plic.SetPriority(id, 1)
	fx.plic.Enable(h, id)
	fx.soc.PLIC.Raise(id)

	if err := fx.d.Inject(h, csr.Interrupt(csr.IRQ_M_EXT), 0); err != nil {
		t.Fatal(err)
	}

	if ids := fx.claimWrites(h); len(ids) != 1 || ids[0] != id {
		t.Fatalf("completions %v", ids)
	}

	if !fx.plic.Enabled(h, id) {
		t.Fatalf("unbound source disabled")
	}
}

func TestPerHartPaths(t *testing.T) {
	fx := newFixture(t, &irq.Layout{})

	for _, h := range hart.All() {
		for _, code := range []uint64{csr.IRQ_M_SOFT, csr.IRQ_M_TIMER, csr.IRQ_M_BEU} {
			if err := fx.d.Inject(h, csr.Interrupt(code), 0); err != nil {
				t.Fatal(err)
			}
		}
	}

	for _, got := range [][]hart.ID{fx.software, fx.timer, fx.busError} {
		if len(got) != hart.Count {
			t.Fatalf("calls %v", got)
		}

		for i, h := range got {
			if h != hart.ID(i) {
				t.Fatalf("calls %v", got)
			}
		}
	}

	if len(fx.bus.Log) != 0 {
		t.Errorf("unexpected PLIC access %v", fx.bus.Log)
	}
}

func TestPending(t *testing.T) {
	c := sim.NewCSR(0)

	if _, ok := Pending(c); ok {
		t.Fatal("unexpected pending interrupt")
	}

	all := uint64(csr.MIP_MSIP | csr.MIP_MTIP | csr.MIP_MEIP)
	all |= irq.LocalIndex(3).Mask() | irq.LocalIndex(40).Mask()

	c.Write(csr.MIP, all)

	// nothing enabled
	if _, ok := Pending(c); ok {
		t.Fatal("unexpected pending interrupt")
	}

	c.Write(csr.MIE, all)

	expected := []csr.Cause{
		irq.LocalIndex(40).Cause(),
		irq.LocalIndex(3).Cause(),
		csr.Interrupt(csr.IRQ_M_EXT),
		csr.Interrupt(csr.IRQ_M_SOFT),
		csr.Interrupt(csr.IRQ_M_TIMER),
	}

	for _, e := range expected {
		cause, ok := Pending(c)

		if !ok || cause != e {
			t.Fatalf("Pending = %v, %v (expected %v)", cause, ok, e)
		}

		c.Clear(csr.MIP, 1<<cause.Code())
	}

	if _, ok := Pending(c); ok {
		t.Fatal("unexpected pending interrupt")
	}
}

func TestPoll(t *testing.T) {
	fx := newFixture(t, &irq.Layout{})
	c := fx.soc.Harts[hart.U54_2]

	if serviced, err := fx.d.Poll(hart.U54_2); serviced || err != nil {
		t.Fatalf("Poll = %v, %v", serviced, err)
	}

	c.Set(csr.MIE, csr.MIP_MTIP)
	c.Assert(csr.MIP_MTIP, true)

	if serviced, err := fx.d.Poll(hart.U54_2); !serviced || err != nil {
		t.Fatalf("Poll = %v, %v", serviced, err)
	}

	if len(fx.timer) != 1 || fx.timer[0] != hart.U54_2 {
		t.Fatalf("timer calls %v", fx.timer)
	}

	if cause := csr.Cause(c.Read(csr.MCAUSE)); cause != csr.Interrupt(csr.IRQ_M_TIMER) {
		t.Fatalf("mcause %v", cause)
	}
}
