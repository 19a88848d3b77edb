// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package csr provides access to the RISC-V machine-mode control and status
// registers used by the trap dispatch core.
//
// Registers are reached through the File interface, implemented by Machine
// for native execution (GOOS=tamago GOARCH=riscv64) and by the sim package
// for host testing.
package csr

// Machine-mode CSR numbers
const (
	MSTATUS = 0x300
	MIE     = 0x304
	MTVEC   = 0x305
	MEPC    = 0x341
	MCAUSE  = 0x342
	MTVAL   = 0x343
	MIP     = 0x344
	MCYCLE  = 0xb00
	MHARTID = 0xf14
)

// mstatus bits
const (
	MSTATUS_MIE  = 1 << 3
	MSTATUS_MPIE = 1 << 7
)

// mie/mip bits
const (
	MIP_MSIP = 1 << IRQ_M_SOFT
	MIP_MTIP = 1 << IRQ_M_TIMER
	MIP_MEIP = 1 << IRQ_M_EXT
)

// LocalOffset is the position of local interrupt 0 in mie/mip.
const LocalOffset = IRQ_M_LOCAL_MIN

// LocalCount is the number of local interrupt lines per hart.
const LocalCount = IRQ_M_LOCAL_MAX - IRQ_M_LOCAL_MIN + 1

// File represents the CSR file of a single hart.
type File interface {
	// Read returns the value of a CSR.
	Read(csr uint16) uint64
	// Write sets the value of a CSR.
	Write(csr uint16, val uint64)
	// Set sets the bits of mask in a CSR.
	Set(csr uint16, mask uint64)
	// Clear clears the bits of mask in a CSR.
	Clear(csr uint16, mask uint64)
	// WaitForInterrupt stalls the hart until an enabled interrupt is
	// pending, or returns immediately when one already is.
	WaitForInterrupt()
}

// HartID returns the raw mhartid value.
func HartID(f File) uint64 {
	return f.Read(MHARTID)
}

// EnableInterrupts sets the global machine interrupt enable.
func EnableInterrupts(f File) {
	f.Set(MSTATUS, MSTATUS_MIE)
}

// DisableInterrupts clears the global machine interrupt enable, and the
// previous one, returning mstatus as it was before the call.
func DisableInterrupts(f File) (mstatus uint64) {
	mstatus = f.Read(MSTATUS)
	f.Clear(MSTATUS, MSTATUS_MIE)
	f.Clear(MSTATUS, MSTATUS_MPIE)
	return
}

// RestoreInterrupts restores an mstatus value saved by DisableInterrupts.
func RestoreInterrupts(f File, mstatus uint64) {
	f.Write(MSTATUS, mstatus)
}

// DisableAll disables interrupts globally and clears every enable and
// pending bit.
func DisableAll(f File) {
	DisableInterrupts(f)
	f.Write(MIE, 0)
	f.Write(MIP, 0)
}
