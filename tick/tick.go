// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tick implements the per-hart system tick, driven by the CLINT
// timer compare registers.
package tick

import (
	"errors"
	"sync/atomic"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/spin"
)

// ErrZeroIncrement is returned when a tick rate yields no timer progress.
var ErrZeroIncrement = errors.New("zero tick increment")

// Increment returns the timer compare increment of a tick period, for a
// real time counter running at clockHz.
func Increment(clockHz uint64, rateMs uint64) uint64 {
	return clockHz / 1000 * rateMs
}

type state struct {
	increment uint64
	count     uint64
}

// Ticker represents the system tick of all harts.
type Ticker struct {
	// CLINT is the core-local interruptor
	CLINT *clint.CLINT
	// Harts holds the CSR file of each hart
	Harts [hart.Count]csr.File
	// ClockHz is the real time counter frequency
	ClockHz uint64
	// RateMs holds the tick period of each hart
	RateMs [hart.Count]uint64
	// Callbacks holds the tick handler of each hart, when not nil
	Callbacks [hart.Count]irq.Handler

	state [hart.Count]state
}

// Configure arms the first tick of a hart and enables its timer interrupt.
func (t *Ticker) Configure(h hart.ID) error {
	inc := Increment(t.ClockHz, t.RateMs[h])

	if inc == 0 {
		return ErrZeroIncrement
	}

	atomic.StoreUint64(&t.state[h].increment, inc)

	t.CLINT.SetTimeCmp(h, t.CLINT.Time()+inc)
	t.Harts[h].Set(csr.MIE, csr.MIP_MTIP)

	return nil
}

// Disable disables the timer interrupt of a hart.
func (t *Ticker) Disable(h hart.ID) {
	t.Harts[h].Clear(csr.MIE, csr.MIP_MTIP)
}

// Handle services the timer interrupt of a hart: the hart callback is run
// with the timer interrupt disabled, then the next tick is armed relative
// to the current time.
func (t *Ticker) Handle(h hart.ID) {
	f := t.Harts[h]
	f.Clear(csr.MIE, csr.MIP_MTIP)

	if fn := t.Callbacks[h]; fn != nil {
		fn()
	}

	atomic.AddUint64(&t.state[h].count, 1)

	t.CLINT.SetTimeCmp(h, t.CLINT.Time()+atomic.LoadUint64(&t.state[h].increment))
	f.Set(csr.MIE, csr.MIP_MTIP)
}

// Count returns the number of ticks serviced by a hart.
func (t *Ticker) Count(h hart.ID) uint64 {
	return atomic.LoadUint64(&t.state[h].count)
}

// Increment returns the configured timer increment of a hart, or zero when
// not configured.
func (t *Ticker) Increment(h hart.ID) uint64 {
	return atomic.LoadUint64(&t.state[h].increment)
}

// SleepMs busy-waits on the real time counter for the argument number of
// milliseconds, wait is invoked between checks when not nil.
func (t *Ticker) SleepMs(ms uint64, wait func()) {
	end := t.CLINT.Time() + Increment(t.ClockHz, ms)

	spin.Until(func() bool {
		return t.CLINT.Time() >= end
	}, wait)
}
