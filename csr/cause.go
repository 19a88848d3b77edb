// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package csr

import (
	"fmt"
)

// mcause fields
const (
	MCAUSE_INT   = 1 << 63
	MCAUSE_CAUSE = MCAUSE_INT - 1
)

// Interrupt cause codes
const (
	IRQ_M_SOFT      = 3
	IRQ_M_TIMER     = 7
	IRQ_M_EXT       = 11
	IRQ_M_LOCAL_MIN = 16
	IRQ_M_LOCAL_MAX = 63
	IRQ_M_BEU       = 128
)

// Exception cause codes
const (
	CAUSE_MISALIGNED_FETCH    = 0
	CAUSE_FETCH_ACCESS        = 1
	CAUSE_ILLEGAL_INSTRUCTION = 2
	CAUSE_BREAKPOINT          = 3
	CAUSE_MISALIGNED_LOAD     = 4
	CAUSE_LOAD_ACCESS         = 5
	CAUSE_MISALIGNED_STORE    = 6
	CAUSE_STORE_ACCESS        = 7
	CAUSE_USER_ECALL          = 8
	CAUSE_SUPERVISOR_ECALL    = 9
	CAUSE_MACHINE_ECALL       = 11
	CAUSE_FETCH_PAGE_FAULT    = 12
	CAUSE_LOAD_PAGE_FAULT     = 13
	CAUSE_STORE_PAGE_FAULT    = 15
)

var exceptionNames = map[uint64]string{
	CAUSE_MISALIGNED_FETCH:    "misaligned fetch",
	CAUSE_FETCH_ACCESS:        "fetch access fault",
	CAUSE_ILLEGAL_INSTRUCTION: "illegal instruction",
	CAUSE_BREAKPOINT:          "breakpoint",
	CAUSE_MISALIGNED_LOAD:     "misaligned load",
	CAUSE_LOAD_ACCESS:         "load access fault",
	CAUSE_MISALIGNED_STORE:    "misaligned store",
	CAUSE_STORE_ACCESS:        "store access fault",
	CAUSE_USER_ECALL:          "user ecall",
	CAUSE_SUPERVISOR_ECALL:    "supervisor ecall",
	CAUSE_MACHINE_ECALL:       "machine ecall",
	CAUSE_FETCH_PAGE_FAULT:    "fetch page fault",
	CAUSE_LOAD_PAGE_FAULT:     "load page fault",
	CAUSE_STORE_PAGE_FAULT:    "store page fault",
}

// Cause represents an mcause value.
type Cause uint64

// Interrupt builds the mcause value of an interrupt code.
func Interrupt(code uint64) Cause {
	return Cause(MCAUSE_INT | code&MCAUSE_CAUSE)
}

// Exception builds the mcause value of an exception code.
func Exception(code uint64) Cause {
	return Cause(code & MCAUSE_CAUSE)
}

// Interrupt reports whether the cause is asynchronous.
func (c Cause) Interrupt() bool {
	return c&MCAUSE_INT != 0
}

// Code returns the cause code without the interrupt bit.
func (c Cause) Code() uint64 {
	return uint64(c) & MCAUSE_CAUSE
}

// Local reports whether the cause is a local interrupt.
func (c Cause) Local() bool {
	return c.Interrupt() && c.Code() >= IRQ_M_LOCAL_MIN && c.Code() <= IRQ_M_LOCAL_MAX
}

func (c Cause) String() string {
	code := c.Code()

	if !c.Interrupt() {
		if name, ok := exceptionNames[code]; ok {
			return name
		}

		return fmt.Sprintf("exception %d", code)
	}

	switch {
	case c.Local():
		return fmt.Sprintf("local interrupt %d", code-IRQ_M_LOCAL_MIN)
	case code == IRQ_M_EXT:
		return "external interrupt"
	case code == IRQ_M_SOFT:
		return "software interrupt"
	case code == IRQ_M_TIMER:
		return "timer interrupt"
	case code == IRQ_M_BEU:
		return "bus error unit interrupt"
	}

	return fmt.Sprintf("interrupt %d", code)
}
