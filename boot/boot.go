// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot implements the release of the U54 application harts by the
// E51 monitor hart.
//
// After reset the application harts park in wait for interrupt, publishing
// their state in a per-hart indicator. The monitor waits for each hart to
// be parked, wakes it with a software interrupt and waits for the hart to
// acknowledge the wake up, raising again should the interrupt be missed.
package boot

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/ipi"
	"github.com/usbarmory/mpfs-hal/spin"
)

// Indicator represents the boot state published by a hart.
type Indicator uint32

// Indicator values
const (
	Unknown   Indicator = 0
	InWFI     Indicator = 0x12345678
	PassedWFI Indicator = 0x87654321
)

// RetryPolls is the number of unacknowledged polls after which the monitor
// raises the software interrupt of a parked hart again.
const RetryPolls = 0x10

func (i Indicator) String() string {
	switch i {
	case InWFI:
		return "in WFI"
	case PassedWFI:
		return "passed WFI"
	default:
		return fmt.Sprintf("%#x", uint32(i))
	}
}

// HLS represents the hart local storage indicators of all harts.
type HLS struct {
	indicator [hart.Count]uint32
}

// Set publishes the indicator of a hart.
func (s *HLS) Set(h hart.ID, i Indicator) {
	atomic.StoreUint32(&s.indicator[h], uint32(i))
}

// Get returns the indicator of a hart.
func (s *HLS) Get(h hart.ID) Indicator {
	return Indicator(atomic.LoadUint32(&s.indicator[h]))
}

// State represents the release state of a hart.
type State int

// Release states
const (
	CheckWFI State = iota
	SendWFI
	CheckWake
	Released
)

var stateNames = []string{"check WFI", "send WFI", "check wake", "released"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// Releaser represents the release state machine run by the monitor hart.
type Releaser struct {
	// IPI is the software interrupt primitive
	IPI *ipi.IPI
	// HLS holds the hart indicators
	HLS *HLS
	// From is the releasing hart
	From hart.ID
	// Wait is invoked between polls when not nil
	Wait func()
}

// Step advances the release of the target hart by one poll and returns the
// next state, polls counts the unacknowledged polls in the CheckWake state.
func (r *Releaser) Step(target hart.ID, state State, polls *int) State {
	switch state {
	case CheckWFI:
		if r.HLS.Get(target) == InWFI {
			return SendWFI
		}
	case SendWFI:
		r.IPI.Raise(r.From, target)
		*polls = 0
		return CheckWake
	case CheckWake:
		if r.HLS.Get(target) == PassedWFI {
			return Released
		}

		*polls++

		if *polls > RetryPolls && r.HLS.Get(target) == InWFI {
			return SendWFI
		}
	}

	return state
}

// Release runs the release state machine until the target hart has passed
// its wait for interrupt, it returns the number of raised interrupts.
func (r *Releaser) Release(target hart.ID) (raises int) {
	state := CheckWFI
	polls := 0

	spin.Until(func() bool {
		if state == SendWFI {
			raises++
		}

		state = r.Step(target, state, &polls)

		return state == Released
	}, r.Wait)

	return
}

// ReleaseAll releases every application hart in ascending order.
func (r *Releaser) ReleaseAll() {
	for _, h := range hart.Application() {
		n := r.Release(h)
		log.Printf("HAL released %s (%d raises)", h, n)
	}
}

// Park idles a hart until it is released by the monitor, publishing its
// indicator before and after the wait.
func Park(p *ipi.IPI, hls *HLS, h hart.ID) {
	hls.Set(h, InWFI)
	p.Wait(h)
	hls.Set(h, PassedWFI)
}
