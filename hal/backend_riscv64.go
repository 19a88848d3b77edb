// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package hal

import (
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/mem"
	"github.com/usbarmory/mpfs-hal/reg"
)

// Machine returns the memory mapped register backend, each hart accesses
// its own CSR file.
func Machine() (hw Hardware) {
	for _, h := range hart.All() {
		hw.Harts[h] = csr.Machine{}
	}

	hw.PLIC = reg.MMIO{Base: mem.PLICBase}
	hw.CLINT = reg.MMIO{Base: mem.CLINTBase}
	hw.BEU = reg.MMIO{Base: mem.BEU(int(hart.E51))}

	return
}
