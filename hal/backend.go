// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hal

import (
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/sim"
)

// Simulated returns the register backend of a simulated core complex.
func Simulated(soc *sim.SoC) (hw Hardware) {
	for _, h := range hart.All() {
		hw.Harts[h] = soc.CSR(h)
	}

	hw.PLIC = soc.PLIC
	hw.CLINT = soc.CLINT
	hw.BEU = soc.BEU

	return
}
