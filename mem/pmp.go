// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// Region represents a physical memory protection window, Start is inclusive
// and End exclusive.
type Region struct {
	Name  string
	Start uint64
	End   uint64

	R, W, X bool
}

// Regions returns the contiguous PMP windows programmed by the firmware, in
// ascending address order, as seen by lower privilege levels.
func Regions() []Region {
	return []Region{
		{
			Name:  "peripherals",
			Start: 0,
			End:   HALStart,
			R:     true,
			W:     true,
			X:     true,
		},
		// HAL runtime and DMA
		{
			Name:  "hal",
			Start: HALStart,
			End:   HALEnd(),
		},
		{
			Name:  "scratch",
			Start: ScratchStart,
			End:   ScratchStart + ScratchSize,
			R:     true,
			W:     true,
			X:     true,
		},
	}
}

// Lookup returns the region holding addr.
func Lookup(addr uint64) (r Region, ok bool) {
	for _, r = range Regions() {
		if addr >= r.Start && addr < r.End {
			return r, true
		}
	}

	return Region{}, false
}
