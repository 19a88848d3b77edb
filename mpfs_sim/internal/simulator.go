// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/board"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hal"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/sim"
	"github.com/usbarmory/mpfs-hal/trap"
	"github.com/usbarmory/mpfs-hal/util"
)

// Simulator represents a simulated core complex running the HAL, one
// goroutine per hart.
type Simulator struct {
	sync.Mutex

	// SoC is the simulated core complex
	SoC *sim.SoC
	// HAL is the dispatch core
	HAL *hal.HAL
	// Period is the real time interval between real time counter updates
	Period time.Duration

	out    [hart.Count]util.HartWriter
	faults []*trap.Fault
	events [hart.Count]uint64
}

// New returns a simulator for the argument board, in reset state.
func New(b *board.Config) (s *Simulator, err error) {
	s = &Simulator{
		SoC:    sim.New(),
		Period: time.Millisecond,
	}

	cfg := hal.Config{
		Board:    b,
		Layout:   s.layout(),
		BusError: beu.HandlerFunc(s.busError),
		Halt:     s.halt,
	}

	for _, h := range hart.All() {
		h := h

		s.out[h].Hart = h
		cfg.Software[h] = func() { s.printf(h, "software interrupt") }
	}

	if s.HAL, err = hal.New(cfg, hal.Simulated(s.SoC)); err != nil {
		return nil, err
	}

	return
}

// SetTerminal directs hart output to a terminal, nil selects stdout.
func (s *Simulator) SetTerminal(t *term.Terminal) {
	s.Lock()
	defer s.Unlock()

	for h := range s.out {
		s.out[h].Term = t
	}
}

// Writer returns the output of a hart.
func (s *Simulator) Writer(h hart.ID) io.Writer {
	s.Lock()
	defer s.Unlock()

	w := s.out[h]

	return &w
}

func (s *Simulator) printf(h hart.ID, format string, a ...interface{}) {
	s.Lock()
	s.events[h]++
	s.Unlock()

	fmt.Fprintf(s.Writer(h), "%s: "+format+"\n", append([]interface{}{h}, a...)...)
}

// Events returns the number of handler invocations of a hart, other than
// ticks.
func (s *Simulator) Events(h hart.ID) uint64 {
	s.Lock()
	defer s.Unlock()

	return s.events[h]
}

// Faults returns the fatal traps reported so far.
func (s *Simulator) Faults() []*trap.Fault {
	s.Lock()
	defer s.Unlock()

	return append([]*trap.Fault(nil), s.faults...)
}

func (s *Simulator) layout() *irq.Layout {
	l := &irq.Layout{}

	// every local line is serviced by a handler which deasserts it
	for _, h := range hart.All() {
		for i := irq.LocalIndex(0); i < csr.LocalCount; i++ {
			h, i := h, i

			l.BindLocal(h, i, func() {
				s.SoC.Harts[h].Assert(i.Mask(), false)
				s.printf(h, "local interrupt %s", irq.LocalName(h, i))
			})
		}
	}

	for n := 0; n < 5; n++ {
		n := n
		id := irq.MMUART(n)

		l.BindExternal(id, func() irq.Action {
			s.printf(s.target(id), "PLIC source %d (mmuart%d)", id, n)
			return irq.KeepEnabled
		})
	}

	// one shot source, masked after its first occurrence
	l.BindExternal(irq.GPIO0, func() irq.Action {
		s.printf(s.target(irq.GPIO0), "PLIC source %d (gpio0), disabling", irq.GPIO0)
		return irq.Disable
	})

	for _, h := range hart.All() {
		h := h

		l.BindExternal(irq.BusErrorUnit(h), func() irq.Action {
			s.HAL.BEU.Handle(h)
			return irq.KeepEnabled
		})
	}

	return l
}

// target returns the hart a PLIC source is enabled on by the board.
func (s *Simulator) target(id uint32) hart.ID {
	for i := range s.HAL.Board.Sources {
		if src := &s.HAL.Board.Sources[i]; src.ID == id {
			return src.Target()
		}
	}

	return hart.E51
}

func (s *Simulator) busError(h hart.ID, st beu.Status) {
	s.printf(h, "bus error, %s", st)
}

func (s *Simulator) halt(f *trap.Fault) {
	s.Lock()
	s.faults = append(s.faults, f)
	s.Unlock()

	// power off
	s.SoC.Harts[f.Hart].Close()
}

// service dispatches every pending trap of a hart, it returns false once
// the hart is halted.
func (s *Simulator) service(h hart.ID) bool {
	for {
		if s.SoC.BEU.LocalPending(h) {
			if err := s.HAL.Dispatcher.Inject(h, csr.Interrupt(csr.IRQ_M_BEU), 0); err != nil {
				return false
			}
		}

		serviced, err := s.HAL.Dispatcher.Poll(h)

		if err != nil {
			return false
		}

		if !serviced {
			return !s.SoC.Harts[h].Closed()
		}
	}
}

func (s *Simulator) run(ctx context.Context, h hart.ID) (err error) {
	f := s.SoC.Harts[h]

	if h.Monitor() {
		s.HAL.Releaser(runtime.Gosched).ReleaseAll()
	} else {
		s.HAL.Park(h)
	}

	if err = s.HAL.InitHart(h); err != nil {
		return fmt.Errorf("%s, %v", h, err)
	}

	log.Printf("SIM %s running", h)

	for ctx.Err() == nil && s.service(h) {
		f.WaitForInterrupt()
	}

	log.Printf("SIM %s halted", h)

	return
}

func (s *Simulator) clock(ctx context.Context) error {
	step := s.HAL.Board.ClockHz * uint64(s.Period) / uint64(time.Second)

	t := time.NewTicker(s.Period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.SoC.CLINT.Advance(step)
		}
	}
}

// Run resets the controllers, releases the application harts and services
// interrupts until the context is cancelled.
//
// Cancellation powers off every hart.
func (s *Simulator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.HAL.InitOnReset()

	for _, h := range hart.All() {
		h := h
		g.Go(func() error {
			return s.run(ctx, h)
		})
	}

	if s.Period > 0 {
		g.Go(func() error {
			return s.clock(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.SoC.Close()
		return nil
	})

	return g.Wait()
}
