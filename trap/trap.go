// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trap implements the machine mode trap classifier of the
// PolarFire SoC harts.
//
// Each hart runs its own classifier on trap entry, mcause is read once and
// routed to the local, external, software, timer or bus error path. Any
// other cause is fatal and halts the hart.
package trap

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/spin"
)

// Config represents the dispatcher collaborators, every field is required.
type Config struct {
	// Harts holds the CSR file of each hart
	Harts [hart.Count]csr.File
	// PLIC is the external interrupt controller
	PLIC *plic.PLIC
	// Local holds the local interrupt table of each hart
	Local irq.LocalTables
	// External is the shared PLIC source table
	External *irq.ExtTable
	// Software services the software interrupt of a hart
	Software func(hart.ID)
	// Timer services the timer interrupt of a hart
	Timer func(hart.ID)
	// BusError services the bus error unit interrupt of a hart
	BusError func(hart.ID)
	// Halt is invoked on fatal traps, it defaults to spin.Forever
	Halt func(*Fault)
}

// Stats represents the per-hart dispatch counters.
type Stats struct {
	Local    uint64
	External uint64
	Spurious uint64
	Software uint64
	Timer    uint64
	BusError uint64
	Fatal    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("local:%d ext:%d spurious:%d soft:%d timer:%d beu:%d fatal:%d",
		s.Local, s.External, s.Spurious, s.Software, s.Timer, s.BusError, s.Fatal)
}

// Dispatcher represents the trap classifier of the core complex.
type Dispatcher struct {
	cfg   Config
	stats [hart.Count]Stats

	// serializes injected traps on each hart
	lock [hart.Count]sync.Mutex
}

// New returns a dispatcher over the argument collaborators.
func New(cfg Config) (d *Dispatcher, err error) {
	for _, h := range hart.All() {
		if cfg.Harts[h] == nil {
			return nil, fmt.Errorf("missing CSR file for %s", h)
		}
	}

	switch {
	case cfg.PLIC == nil:
		return nil, errors.New("missing PLIC")
	case cfg.External == nil:
		return nil, errors.New("missing external interrupt table")
	case cfg.Software == nil:
		return nil, errors.New("missing software interrupt handler")
	case cfg.Timer == nil:
		return nil, errors.New("missing timer interrupt handler")
	case cfg.BusError == nil:
		return nil, errors.New("missing bus error handler")
	}

	if err = cfg.Local.Validate(); err != nil {
		return
	}

	if cfg.Halt == nil {
		cfg.Halt = func(*Fault) { spin.Forever() }
	}

	return &Dispatcher{cfg: cfg}, nil
}

// Stats returns the dispatch counters of a hart.
func (d *Dispatcher) Stats(h hart.ID) Stats {
	s := &d.stats[h]

	return Stats{
		Local:    atomic.LoadUint64(&s.Local),
		External: atomic.LoadUint64(&s.External),
		Spurious: atomic.LoadUint64(&s.Spurious),
		Software: atomic.LoadUint64(&s.Software),
		Timer:    atomic.LoadUint64(&s.Timer),
		BusError: atomic.LoadUint64(&s.BusError),
		Fatal:    atomic.LoadUint64(&s.Fatal),
	}
}

// Handle services the trap taken by a hart, as described by its mcause
// register. The frame holds the registers saved at trap entry and can be
// nil, mepc is the trapping PC.
//
// Interrupt enable state is never modified. A fatal trap invokes the
// configured Halt function, should it return the fault is returned as error.
func (d *Dispatcher) Handle(h hart.ID, frame *Frame, mepc uint64) error {
	f := d.cfg.Harts[h]
	cause := csr.Cause(f.Read(csr.MCAUSE))
	s := &d.stats[h]

	if !cause.Interrupt() {
		return d.fatal(h, cause, frame, mepc)
	}

	switch code := cause.Code(); {
	case code >= csr.IRQ_M_LOCAL_MIN && code <= csr.IRQ_M_LOCAL_MAX:
		atomic.AddUint64(&s.Local, 1)
		i, _ := irq.LocalIndexFromCause(cause)
		d.cfg.Local[h].Handler(i)()
	case code == csr.IRQ_M_EXT:
		d.external(h)
	case code == csr.IRQ_M_SOFT:
		atomic.AddUint64(&s.Software, 1)
		d.cfg.Software(h)
	case code == csr.IRQ_M_TIMER:
		atomic.AddUint64(&s.Timer, 1)
		d.cfg.Timer(h)
	case code == csr.IRQ_M_BEU:
		atomic.AddUint64(&s.BusError, 1)
		d.cfg.BusError(h)
	default:
		return d.fatal(h, cause, frame, mepc)
	}

	return nil
}

// external runs the claim/complete protocol, a spurious claim returns
// without completion.
func (d *Dispatcher) external(h hart.ID) {
	p := d.cfg.PLIC
	s := &d.stats[h]

	id := p.Claim(h)

	if id == plic.Invalid {
		atomic.AddUint64(&s.Spurious, 1)
		return
	}

	atomic.AddUint64(&s.External, 1)

	action := irq.Disable

	if fn, ok := d.cfg.External.Lookup(id); ok {
		action = fn()
	}

	p.Complete(h, id)

	if action == irq.Disable {
		p.Disable(h, id)
	}
}

func (d *Dispatcher) fatal(h hart.ID, cause csr.Cause, frame *Frame, mepc uint64) error {
	fault := &Fault{
		Hart:  h,
		Cause: cause,
		PC:    mepc,
		Value: d.cfg.Harts[h].Read(csr.MTVAL),
	}

	if frame != nil {
		snapshot := *frame
		fault.Frame = &snapshot
	}

	atomic.AddUint64(&d.stats[h].Fatal, 1)

	log.Printf("HAL %s", fault.Dump())
	d.cfg.Halt(fault)

	return fault
}

// Pending returns the highest priority interrupt which is both pending and
// enabled on a CSR file. Local lines take precedence, highest index first,
// followed by external, software and timer interrupts.
func Pending(f csr.File) (cause csr.Cause, ok bool) {
	p := f.Read(csr.MIP) & f.Read(csr.MIE)

	if p == 0 {
		return
	}

	for code := uint64(csr.IRQ_M_LOCAL_MAX); code >= csr.IRQ_M_LOCAL_MIN; code-- {
		if p&(1<<code) != 0 {
			return csr.Interrupt(code), true
		}
	}

	for _, code := range []uint64{csr.IRQ_M_EXT, csr.IRQ_M_SOFT, csr.IRQ_M_TIMER} {
		if p&(1<<code) != 0 {
			return csr.Interrupt(code), true
		}
	}

	return
}

// Inject services a trap of the argument cause on a hart, as if taken at
// mepc, by setting its mcause register. Injections on the same hart, Poll
// included, are serviced one at a time.
func (d *Dispatcher) Inject(h hart.ID, cause csr.Cause, mepc uint64) error {
	d.lock[h].Lock()
	defer d.lock[h].Unlock()

	d.cfg.Harts[h].Write(csr.MCAUSE, uint64(cause))

	return d.Handle(h, nil, mepc)
}

// Poll services the highest priority pending interrupt of a hart, it is
// used in place of trap entry when interrupts are globally disabled.
func (d *Dispatcher) Poll(h hart.ID) (serviced bool, err error) {
	cause, ok := Pending(d.cfg.Harts[h])

	if !ok {
		return
	}

	return true, d.Inject(h, cause, 0)
}
