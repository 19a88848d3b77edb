// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package beu implements a driver for the per-hart Bus Error Units, which
// record cache ECC and bus errors and signal them as a hart local interrupt
// and/or a PLIC source.
package beu

import (
	"fmt"
	"sync"

	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/reg"
)

// BEU registers, per hart
const (
	CAUSE     = 0x00
	VALUE     = 0x08
	ENABLE    = 0x10
	PLIC_INT  = 0x18
	ACCRUED   = 0x20
	LOCAL_INT = 0x28

	STRIDE = 0x1000
)

// Event represents a bus error unit cause code.
type Event uint64

// Bus error unit events
const (
	None Event = iota
	_
	ICacheCorrectable
	ICacheUncorrectable
	_
	BusError
	DCacheCorrectable
	DCacheUncorrectable
)

var eventNames = map[Event]string{
	None:                "none",
	ICacheCorrectable:   "instruction cache correctable ECC",
	ICacheUncorrectable: "instruction cache uncorrectable ECC",
	BusError:            "TileLink bus error",
	DCacheCorrectable:   "data cache correctable ECC",
	DCacheUncorrectable: "data cache uncorrectable ECC",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}

	return fmt.Sprintf("event %d", uint64(e))
}

// Mask returns the enable mask bit of the event.
func (e Event) Mask() uint64 {
	return 1 << e
}

// ParseEvent returns the event for a cause code.
func ParseEvent(code uint64) (Event, error) {
	e := Event(code)

	if _, ok := eventNames[e]; !ok || e == None {
		return None, fmt.Errorf("invalid bus error event %d", code)
	}

	return e, nil
}

// Config represents the event masks of a hart bus error unit.
type Config struct {
	// Enable selects the recorded events
	Enable uint64
	// PLIC selects the events signalled to the PLIC
	PLIC uint64
	// Local selects the events signalled as hart local interrupt
	Local uint64
}

// Status represents the error state of a hart bus error unit.
type Status struct {
	// Cause is the first recorded event
	Cause Event
	// Value is the physical address of the recorded event
	Value uint64
	// Accrued is the mask of all events seen since the last clear
	Accrued uint64
}

func (s Status) String() string {
	return fmt.Sprintf("cause:%s value:%#x accrued:%#x", s.Cause, s.Value, s.Accrued)
}

// Handler is the interface for bus error interrupt handling.
type Handler interface {
	HandleBusError(h hart.ID, s Status)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(h hart.ID, s Status)

// HandleBusError implements Handler.
func (f HandlerFunc) HandleBusError(h hart.ID, s Status) {
	f(h, s)
}

type noop struct{}

func (noop) HandleBusError(hart.ID, Status) {}

// Default is the bus error handler used unless one is registered, it does
// nothing.
var Default Handler = noop{}

// BEU represents the bus error units of all harts.
type BEU struct {
	// Bus is the register window of hart 0, the following harts are
	// located at STRIDE increments
	Bus reg.Bus

	sync.Mutex
	handler Handler
}

func base(h hart.ID) uint32 {
	return uint32(h) * STRIDE
}

// Init applies the per-hart event masks and clears any recorded error.
func (b *BEU) Init(cfg [hart.Count]Config) {
	for _, h := range hart.All() {
		off := base(h)

		b.Bus.Write64(off+ENABLE, cfg[h].Enable)
		b.Bus.Write64(off+PLIC_INT, cfg[h].PLIC)
		b.Bus.Write64(off+LOCAL_INT, cfg[h].Local)
		b.Bus.Write64(off+CAUSE, 0)
		b.Bus.Write64(off+ACCRUED, 0)
		b.Bus.Write64(off+VALUE, 0)
	}
}

// Register overrides the bus error handler, a nil handler restores Default.
func (b *BEU) Register(handler Handler) {
	b.Lock()
	defer b.Unlock()

	b.handler = handler
}

// Status returns the error state of a hart bus error unit.
func (b *BEU) Status(h hart.ID) Status {
	off := base(h)

	return Status{
		Cause:   Event(b.Bus.Read64(off + CAUSE)),
		Value:   b.Bus.Read64(off + VALUE),
		Accrued: b.Bus.Read64(off + ACCRUED),
	}
}

// Clear resets the recorded error state of a hart bus error unit.
func (b *BEU) Clear(h hart.ID) {
	off := base(h)

	b.Bus.Write64(off+CAUSE, 0)
	b.Bus.Write64(off+ACCRUED, 0)
}

// Handle services the bus error interrupt of a hart: the registered handler
// is invoked with the unit status, which is cleared afterwards.
func (b *BEU) Handle(h hart.ID) {
	b.Lock()
	handler := b.handler
	b.Unlock()

	if handler == nil {
		handler = Default
	}

	handler.HandleBusError(h, b.Status(h))
	b.Clear(h)
}
