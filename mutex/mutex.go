// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mutex provides an advisory lock shared between harts, for
// resources used by more than one hart such as a console UART.
package mutex

import (
	"sync/atomic"

	"github.com/usbarmory/mpfs-hal/spin"
)

// Mutex represents a spin lock, the zero value is unlocked. It has no owner
// and waits have no timeout.
type Mutex struct {
	state uint32
}

// TryTake attempts to acquire the lock without waiting.
func (m *Mutex) TryTake() bool {
	return atomic.CompareAndSwapUint32(&m.state, 0, 1)
}

// Take acquires the lock, wait is invoked between attempts when not nil.
func (m *Mutex) Take(wait func()) {
	spin.Until(m.TryTake, wait)
}

// Release releases the lock.
func (m *Mutex) Release() {
	atomic.StoreUint32(&m.state, 0)
}

// Held reports whether the lock is taken.
func (m *Mutex) Held() bool {
	return atomic.LoadUint32(&m.state) == 1
}
