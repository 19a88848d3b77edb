// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hal assembles the PolarFire SoC interrupt and trap dispatch core
// from a board configuration, an interrupt layout and a register backend.
//
// A HAL is initialized once by the E51 monitor hart (InitOnReset), then
// each hart initializes its own controller contexts and interrupt enables
// (InitHart) before servicing traps through the dispatcher.
package hal

import (
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/board"
	"github.com/usbarmory/mpfs-hal/boot"
	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/ipi"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/reg"
	"github.com/usbarmory/mpfs-hal/tick"
	"github.com/usbarmory/mpfs-hal/trap"
)

// Hardware represents the register backend of the core complex.
type Hardware struct {
	// Harts holds the CSR file of each hart
	Harts [hart.Count]csr.File
	// PLIC is the external interrupt controller register window
	PLIC reg.Bus
	// CLINT is the core-local interruptor register window
	CLINT reg.Bus
	// BEU is the register window of the hart 0 bus error unit
	BEU reg.Bus
}

// Config represents the application side of the HAL.
type Config struct {
	// Board is the board configuration, nil selects board.Default()
	Board *board.Config
	// Layout holds the local and external interrupt bindings
	Layout *irq.Layout
	// Software holds the software interrupt callback of each hart
	Software [hart.Count]irq.Handler
	// Tick holds the system tick callback of each hart
	Tick [hart.Count]irq.Handler
	// BusError overrides the default bus error handler when not nil
	BusError beu.Handler
	// Halt is invoked on fatal traps, it defaults to a busy loop
	Halt func(*trap.Fault)
}

// HAL represents the assembled dispatch core.
type HAL struct {
	Board      *board.Config
	PLIC       *plic.PLIC
	CLINT      *clint.CLINT
	BEU        *beu.BEU
	Ticker     *tick.Ticker
	IPI        *ipi.IPI
	HLS        *boot.HLS
	Dispatcher *trap.Dispatcher

	harts    [hart.Count]csr.File
	local    irq.LocalTables
	external *irq.ExtTable
}

// New assembles a HAL, no register is accessed until initialization.
func New(cfg Config, hw Hardware) (h *HAL, err error) {
	if hw.PLIC == nil || hw.CLINT == nil || hw.BEU == nil {
		return nil, errors.New("incomplete hardware backend")
	}

	if cfg.Board == nil {
		cfg.Board = board.Default()
	}

	if err = cfg.Board.Validate(); err != nil {
		return
	}

	if cfg.Layout == nil {
		cfg.Layout = &irq.Layout{}
	}

	h = &HAL{
		Board: cfg.Board,
		PLIC:  &plic.PLIC{Bus: hw.PLIC},
		CLINT: &clint.CLINT{Bus: hw.CLINT},
		BEU:   &beu.BEU{Bus: hw.BEU},
		HLS:   &boot.HLS{},
		harts: hw.Harts,
	}

	if h.local, h.external, err = cfg.Layout.Build(); err != nil {
		return nil, err
	}

	h.Ticker = &tick.Ticker{
		CLINT:     h.CLINT,
		Harts:     hw.Harts,
		ClockHz:   cfg.Board.ClockHz,
		RateMs:    cfg.Board.TickRates(),
		Callbacks: cfg.Tick,
	}

	for _, id := range hart.All() {
		if h.Ticker.RateMs[id] != 0 && tick.Increment(h.Ticker.ClockHz, h.Ticker.RateMs[id]) == 0 {
			return nil, fmt.Errorf("%s tick, %w", id, tick.ErrZeroIncrement)
		}
	}

	h.IPI = &ipi.IPI{
		CLINT:     h.CLINT,
		Harts:     hw.Harts,
		Callbacks: cfg.Software,
	}

	if cfg.BusError != nil {
		h.BEU.Register(cfg.BusError)
	}

	h.Dispatcher, err = trap.New(trap.Config{
		Harts:    hw.Harts,
		PLIC:     h.PLIC,
		Local:    h.local,
		External: h.external,
		Software: h.IPI.Handle,
		Timer:    h.Ticker.Handle,
		BusError: h.BEU.Handle,
		Halt:     cfg.Halt,
	})

	if err != nil {
		return nil, err
	}

	return
}

// CSR returns the CSR file of a hart.
func (h *HAL) CSR(id hart.ID) csr.File {
	return h.harts[id]
}

// Local returns the local interrupt table of a hart.
func (h *HAL) Local(id hart.ID) *irq.LocalTable {
	return h.local[id]
}

// External returns the PLIC source table.
func (h *HAL) External() *irq.ExtTable {
	return h.external
}

// InitOnReset resets the shared controllers, it must be run once by the
// monitor hart before any other hart is released.
func (h *HAL) InitOnReset() {
	h.PLIC.InitOnReset(hart.E51)
	h.BEU.Init(h.Board.BEU())

	for _, s := range h.Board.Sources {
		h.PLIC.SetPriority(s.ID, s.Priority)
	}

	log.Printf("HAL %s: PLIC %d sources, %d bound", h.Board.Name, plic.NumSources-1, len(h.external.Sources()))
}

// InitHart prepares a hart for interrupt delivery: its PLIC contexts are
// reset, the board sources targeting the hart are enabled, the software
// interrupt and bound local lines are enabled and the system tick is armed
// when configured.
//
// Global interrupts are left disabled.
func (h *HAL) InitHart(id hart.ID) (err error) {
	f := h.harts[id]

	h.PLIC.InitHart(id, f)

	for i := range h.Board.Sources {
		if s := &h.Board.Sources[i]; s.Target() == id {
			h.PLIC.Enable(id, s.ID)
		}
	}

	f.Set(csr.MIE, csr.MIP_MSIP)

	for i := irq.LocalIndex(0); i < csr.LocalCount; i++ {
		if h.local[id].Bound(i) {
			irq.EnableLocal(f, i)
		}
	}

	if h.Ticker.RateMs[id] != 0 {
		err = h.Ticker.Configure(id)
	}

	return
}

// Releaser returns the boot release state machine of the monitor hart,
// wait is invoked between polls when not nil.
func (h *HAL) Releaser(wait func()) *boot.Releaser {
	return &boot.Releaser{
		IPI:  h.IPI,
		HLS:  h.HLS,
		From: hart.E51,
		Wait: wait,
	}
}

// Park idles an application hart until released by the monitor hart.
func (h *HAL) Park(id hart.ID) {
	boot.Park(h.IPI, h.HLS, id)
}
