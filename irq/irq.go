// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package irq provides the interrupt dispatch tables of the PolarFire SoC
// harts.
//
// Every hart owns a table of 48 local interrupt handlers, all harts share a
// single table of PLIC source handlers. Tables are built once and never
// modified afterwards, every slot holds a callable handler.
package irq

import (
	"errors"
	"fmt"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/plic"
)

// Handler represents a local, software or timer interrupt handler.
type Handler func()

// Action is the value returned by an external interrupt handler.
type Action int

const (
	// KeepEnabled leaves the source enabled after completion.
	KeepEnabled Action = iota
	// Disable masks the source after completion.
	Disable
)

func (a Action) String() string {
	switch a {
	case KeepEnabled:
		return "keep"
	case Disable:
		return "disable"
	}

	return fmt.Sprintf("action(%d)", int(a))
}

// ExtHandler represents an external interrupt handler.
type ExtHandler func() Action

// ErrNilHandler is returned when a table binding has no handler.
var ErrNilHandler = errors.New("nil handler")

// Spare is the handler of unbound local interrupt slots, it does nothing.
func Spare() {}

// Unbound is the handler of unbound PLIC sources, it does nothing and keeps
// the source enabled.
func Unbound() Action {
	return KeepEnabled
}

// Invalid is the handler of PLIC source 0, which is never claimed.
func Invalid() Action {
	return KeepEnabled
}

// LocalIndex represents a local interrupt line.
type LocalIndex uint8

// LocalIndexFromCause returns the local interrupt line of an mcause value.
func LocalIndexFromCause(c csr.Cause) (LocalIndex, bool) {
	if !c.Local() {
		return 0, false
	}

	return LocalIndex(c.Code() - csr.IRQ_M_LOCAL_MIN), true
}

// Valid reports whether the index is within the local interrupt lines.
func (i LocalIndex) Valid() bool {
	return i < csr.LocalCount
}

// Cause returns the mcause value of the local interrupt line.
func (i LocalIndex) Cause() csr.Cause {
	return csr.Interrupt(uint64(i) + csr.IRQ_M_LOCAL_MIN)
}

// Mask returns the MIE/MIP bit of the local interrupt line.
func (i LocalIndex) Mask() uint64 {
	return 1 << (uint64(i) + csr.LocalOffset)
}

// LocalTable represents the local interrupt handlers of a hart.
type LocalTable struct {
	handlers [csr.LocalCount]Handler
	bound    [csr.LocalCount]bool
}

// NewLocalTable returns a table with the argument bindings, unbound slots
// are filled with Spare.
func NewLocalTable(bindings map[LocalIndex]Handler) (t *LocalTable, err error) {
	t = &LocalTable{}

	for i := range t.handlers {
		t.handlers[i] = Spare
	}

	for i, fn := range bindings {
		if !i.Valid() {
			return nil, fmt.Errorf("invalid local interrupt %d", i)
		}

		if fn == nil {
			return nil, fmt.Errorf("local interrupt %d, %v", i, ErrNilHandler)
		}

		t.handlers[i] = fn
		t.bound[i] = true
	}

	return
}

// Len returns the number of table slots.
func (t *LocalTable) Len() int {
	return len(t.handlers)
}

// Handler returns the handler of a local interrupt line.
func (t *LocalTable) Handler(i LocalIndex) Handler {
	return t.handlers[i]
}

// Bound reports whether a line has a handler other than Spare.
func (t *LocalTable) Bound(i LocalIndex) bool {
	return i.Valid() && t.bound[i]
}

// LocalTables holds the local interrupt table of every hart.
type LocalTables [hart.Count]*LocalTable

// Validate checks that every hart has a fully populated table.
func (lt *LocalTables) Validate() error {
	for _, h := range hart.All() {
		t := lt[h]

		if t == nil {
			return fmt.Errorf("missing local table for %s", h)
		}

		for i, fn := range t.handlers {
			if fn == nil {
				return fmt.Errorf("%s local interrupt %d, %v", h, i, ErrNilHandler)
			}
		}
	}

	return nil
}

// ExtTable represents the PLIC source handlers, indexed by source ID.
type ExtTable struct {
	handlers [plic.NumSources]ExtHandler
	bound    [plic.NumSources]bool
}

// NewExtTable returns a table with the argument bindings, source 0 is bound
// to Invalid and other unbound sources to Unbound.
func NewExtTable(bindings map[uint32]ExtHandler) (t *ExtTable, err error) {
	t = &ExtTable{}

	t.handlers[plic.Invalid] = Invalid

	for id := 1; id < len(t.handlers); id++ {
		t.handlers[id] = Unbound
	}

	for id, fn := range bindings {
		if id == plic.Invalid || id >= plic.NumSources {
			return nil, fmt.Errorf("invalid external interrupt %d", id)
		}

		if fn == nil {
			return nil, fmt.Errorf("external interrupt %d, %v", id, ErrNilHandler)
		}

		t.handlers[id] = fn
		t.bound[id] = true
	}

	return
}

// Len returns the number of table slots.
func (t *ExtTable) Len() int {
	return len(t.handlers)
}

// Lookup returns the handler of a PLIC source, ok is false when the ID is
// beyond the table.
func (t *ExtTable) Lookup(id uint32) (fn ExtHandler, ok bool) {
	if id >= uint32(len(t.handlers)) {
		return
	}

	return t.handlers[id], true
}

// Bound reports whether a source has a handler other than Unbound.
func (t *ExtTable) Bound(id uint32) bool {
	return id < uint32(len(t.bound)) && t.bound[id]
}

// Sources returns the IDs of all bound sources in ascending order.
func (t *ExtTable) Sources() (ids []uint32) {
	for id, bound := range t.bound {
		if bound {
			ids = append(ids, uint32(id))
		}
	}

	return
}

// EnableLocal enables a local interrupt line on a hart CSR file.
func EnableLocal(f csr.File, i LocalIndex) {
	if !i.Valid() {
		return
	}

	f.Set(csr.MIE, i.Mask())
}

// DisableLocal disables a local interrupt line on a hart CSR file.
func DisableLocal(f csr.File, i LocalIndex) {
	if !i.Valid() {
		return
	}

	f.Clear(csr.MIE, i.Mask())
}

// LocalEnabled reports whether a local interrupt line is enabled on a hart
// CSR file.
func LocalEnabled(f csr.File, i LocalIndex) bool {
	return i.Valid() && f.Read(csr.MIE)&i.Mask() != 0
}
