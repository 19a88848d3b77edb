// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package main

import (
	"fmt"

	"github.com/usbarmory/tamago/riscv"
	"github.com/usbarmory/tamago/soc/sifive/fu540"

	"github.com/usbarmory/mpfs-hal/mem"
)

// first PMP entry owned by the HAL
const pmpIndex = 0

// configurePMP programs the memory regions as a chain of TOR entries, the
// first entry only sets the bottom address of the chain.
func configurePMP(i int) (err error) {
	regions := mem.Regions()

	if err = fu540.RV64.WritePMP(i, regions[0].Start, false, false, false, riscv.PMP_CFG_A_OFF, false); err != nil {
		return
	}

	for n, r := range regions {
		if err = fu540.RV64.WritePMP(i+1+n, r.End, r.R, r.W, r.X, riscv.PMP_CFG_A_TOR, false); err != nil {
			return fmt.Errorf("%s region, %v", r.Name, err)
		}
	}

	return
}
