// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package csr

// defined in machine_riscv64.s
func read_mstatus() uint64
func read_mie() uint64
func read_mip() uint64
func read_mcause() uint64
func read_mepc() uint64
func read_mtval() uint64
func read_mhartid() uint64
func write_mstatus(uint64)
func write_mie(uint64)
func write_mip(uint64)
func write_mcause(uint64)
func set_mstatus(uint64)
func set_mie(uint64)
func clear_mstatus(uint64)
func clear_mie(uint64)
func clear_mip(uint64)
func wfi()

// Machine represents the CSR file of the hart executing the caller.
type Machine struct{}

// Read implements File, unsupported registers read as zero.
func (Machine) Read(csr uint16) uint64 {
	switch csr {
	case MSTATUS:
		return read_mstatus()
	case MIE:
		return read_mie()
	case MIP:
		return read_mip()
	case MCAUSE:
		return read_mcause()
	case MEPC:
		return read_mepc()
	case MTVAL:
		return read_mtval()
	case MHARTID:
		return read_mhartid()
	}

	return 0
}

// Write implements File, unsupported registers are ignored.
func (Machine) Write(csr uint16, val uint64) {
	switch csr {
	case MSTATUS:
		write_mstatus(val)
	case MIE:
		write_mie(val)
	case MIP:
		write_mip(val)
	case MCAUSE:
		write_mcause(val)
	}
}

// Set implements File.
func (m Machine) Set(csr uint16, mask uint64) {
	switch csr {
	case MSTATUS:
		set_mstatus(mask)
	case MIE:
		set_mie(mask)
	default:
		m.Write(csr, m.Read(csr)|mask)
	}
}

// Clear implements File.
func (m Machine) Clear(csr uint16, mask uint64) {
	switch csr {
	case MSTATUS:
		clear_mstatus(mask)
	case MIE:
		clear_mie(mask)
	case MIP:
		clear_mip(mask)
	default:
		m.Write(csr, m.Read(csr)&^mask)
	}
}

// WaitForInterrupt implements File.
func (Machine) WaitForInterrupt() {
	wfi()
}
