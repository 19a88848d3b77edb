// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"sync"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/reg"
)

// SoC represents a simulated core complex.
type SoC struct {
	Harts [hart.Count]*CSR
	PLIC  *PLIC
	CLINT *CLINT
	BEU   *BEU
}

// New returns a core complex in its reset state.
func New() (s *SoC) {
	s = &SoC{}

	for _, h := range hart.All() {
		s.Harts[h] = NewCSR(uint64(h))
	}

	s.PLIC = NewPLIC(s.Harts)
	s.CLINT = NewCLINT(s.Harts)
	s.BEU = NewBEU(s.PLIC)

	return
}

// CSR returns the CSR file of a hart.
func (s *SoC) CSR(h hart.ID) csr.File {
	return s.Harts[h]
}

// Close releases every hart blocked in, or entering, a wait for interrupt.
func (s *SoC) Close() {
	for _, c := range s.Harts {
		c.Close()
	}
}

// Access represents a recorded register access.
type Access struct {
	Write bool
	Off   uint32
	Val   uint64
}

// Recorder wraps a register bus logging every access.
type Recorder struct {
	reg.Bus

	sync.Mutex
	Log []Access
}

func (r *Recorder) record(a Access) {
	r.Lock()
	r.Log = append(r.Log, a)
	r.Unlock()
}

// Read32 implements reg.Bus.
func (r *Recorder) Read32(off uint32) (val uint32) {
	val = r.Bus.Read32(off)
	r.record(Access{Off: off, Val: uint64(val)})
	return
}

// Write32 implements reg.Bus.
func (r *Recorder) Write32(off uint32, val uint32) {
	r.record(Access{Write: true, Off: off, Val: uint64(val)})
	r.Bus.Write32(off, val)
}

// Read64 implements reg.Bus.
func (r *Recorder) Read64(off uint32) (val uint64) {
	val = r.Bus.Read64(off)
	r.record(Access{Off: off, Val: val})
	return
}

// Write64 implements reg.Bus.
func (r *Recorder) Write64(off uint32, val uint64) {
	r.record(Access{Write: true, Off: off, Val: val})
	r.Bus.Write64(off, val)
}

// Writes returns the recorded write accesses.
func (r *Recorder) Writes() (w []Access) {
	r.Lock()
	defer r.Unlock()

	for _, a := range r.Log {
		if a.Write {
			w = append(w, a)
		}
	}

	return
}

// Reset clears the access log.
func (r *Recorder) Reset() {
	r.Lock()
	defer r.Unlock()

	r.Log = nil
}
