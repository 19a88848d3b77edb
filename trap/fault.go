// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"bytes"
	"fmt"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
)

// Frame represents the integer registers saved at trap entry, indexed by
// register number.
type Frame [32]uint64

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func (f *Frame) String() string {
	var buf bytes.Buffer

	for i := 1; i < len(f); i++ {
		fmt.Fprintf(&buf, "%-3s = %#.16x", abiNames[i], f[i])

		if i%4 == 0 {
			buf.WriteByte('\n')
		} else {
			buf.WriteString("  ")
		}
	}

	return buf.String()
}

// Fault represents a trap which cannot be serviced, the hart reporting it
// is halted.
type Fault struct {
	// Hart is the faulting hart
	Hart hart.ID
	// Cause is the mcause value
	Cause csr.Cause
	// PC is the mepc value
	PC uint64
	// Value is the mtval value
	Value uint64
	// Frame is the register snapshot, when available
	Frame *Frame
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fatal trap on %s, %s (mcause:%#x mepc:%#x mtval:%#x)",
		f.Hart, f.Cause, uint64(f.Cause), f.PC, f.Value)
}

// Dump returns the fault description followed by the register snapshot.
func (f *Fault) Dump() string {
	if f.Frame == nil {
		return f.Error()
	}

	return f.Error() + "\n" + f.Frame.String()
}
