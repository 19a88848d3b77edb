// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem defines the PolarFire SoC memory map used by the HAL and the
// RAM layout of its firmware.
package mem

// Core complex controllers
const (
	// Bus Error Unit, one window per hart
	BEUBase   = 0x01700000
	BEUStride = 0x1000

	// Core Local Interruptor
	CLINTBase = 0x02000000
	CLINTSize = 0x00010000

	// Platform Level Interrupt Controller
	PLICBase = 0x0c000000
	PLICSize = 0x04000000
)

// Firmware RAM layout
const (
	// HAL runtime
	HALStart = 0x80000000
	HALSize  = 0x03f00000 // 63MB

	// HAL DMA (relocated to avoid conflicts with application harts)
	HALDMAStart = 0x83f00000
	HALDMASize  = 0x00100000 // 1MB

	// Application hart scratch area
	ScratchStart = 0x84000000
	ScratchSize  = 0x04000000 // 64MB
)

// HALEnd returns the first address above the PMP protected HAL area.
func HALEnd() uint64 {
	return HALDMAStart + HALDMASize
}

// BEU returns the register window base of a hart bus error unit.
func BEU(hart int) uint {
	return BEUBase + uint(hart)*BEUStride
}
