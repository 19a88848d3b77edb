// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irq

import (
	"fmt"

	"github.com/usbarmory/mpfs-hal/hart"
)

// E51 local interrupt lines
const (
	E51Maintenance LocalIndex = 0
	E51USocSMB     LocalIndex = 1
	E51USocVC      LocalIndex = 2
	E51G5CMessage  LocalIndex = 3
	E51G5CDevRst   LocalIndex = 4
	E51Wdog4Tout   LocalIndex = 5
	E51Wdog3Tout   LocalIndex = 6
	E51Wdog2Tout   LocalIndex = 7
	E51Wdog1Tout   LocalIndex = 8
	E51Wdog0Tout   LocalIndex = 9
	E51Wdog0MVRP   LocalIndex = 10
	E51MMUART0     LocalIndex = 11
	E51ENVM        LocalIndex = 12
	E51ECCCorrect  LocalIndex = 13
	E51ECCError    LocalIndex = 14
	E51SCB         LocalIndex = 15

	// E51F2M is the line of fabric interrupt 32, up to 63
	E51F2M LocalIndex = 16
)

// U54 local interrupt lines
const (
	U54MACMMSL  LocalIndex = 3
	U54MACEMAC  LocalIndex = 4
	U54MACQ3    LocalIndex = 5
	U54MACQ2    LocalIndex = 6
	U54MACQ1    LocalIndex = 7
	U54MACInt   LocalIndex = 8
	U54WdogTout LocalIndex = 9
	U54WdogMVRP LocalIndex = 10
	U54MMUART   LocalIndex = 11

	// U54F2M is the line of fabric interrupt 0, up to 31
	U54F2M LocalIndex = 16
)

// PLIC sources
const (
	L2MetadataCorrectable   = 1
	L2MetadataUncorrectable = 2
	L2DataCorrectable       = 3
	L2DataUncorrectable     = 4

	// DMAChannel is the done source of DMA channel 0, the error source
	// follows, up to channel 3
	DMAChannel = 5

	// MSSGlobal is the first MSS peripheral source
	MSSGlobal = 13

	GPIO0      = MSSGlobal
	SPI0       = MSSGlobal + 41
	SPI1       = MSSGlobal + 42
	CAN0       = MSSGlobal + 43
	CAN1       = MSSGlobal + 44
	I2C0       = MSSGlobal + 45
	I2C1       = MSSGlobal + 48
	MAC0       = MSSGlobal + 51
	MAC1       = MSSGlobal + 57
	DDRCTrain  = MSSGlobal + 63
	SCB        = MSSGlobal + 64
	ECCError   = MSSGlobal + 65
	ECCCorrect = MSSGlobal + 66
	RTCWakeup  = MSSGlobal + 67
	RTCMatch   = MSSGlobal + 68
	Timer1     = MSSGlobal + 69
	Timer2     = MSSGlobal + 70
	ENVM       = MSSGlobal + 71
	QSPI       = MSSGlobal + 72
	USBDMA     = MSSGlobal + 73
	USBMC      = MSSGlobal + 74
	MMC        = MSSGlobal + 75
	MMUART0    = MSSGlobal + 77
	WdogMVRP   = MSSGlobal + 87
	WdogTout   = MSSGlobal + 92
	F2M        = MSSGlobal + 105

	// BEU is the bus error unit source of the E51, the U54 ones follow
	BEU = 182
)

// MMUART returns the PLIC source of an MSS UART.
func MMUART(n int) uint32 {
	return uint32(MMUART0 + n)
}

// FabricSource returns the PLIC source of a fabric to MSS interrupt.
func FabricSource(n int) uint32 {
	return uint32(F2M + n)
}

// BusErrorUnit returns the PLIC source of a hart bus error unit.
func BusErrorUnit(h hart.ID) uint32 {
	return uint32(BEU) + uint32(h)
}

// FabricLine returns the local interrupt line of a fabric interrupt on a
// hart, the E51 receives fabric interrupts 32 to 63, U54 harts 0 to 31.
func FabricLine(h hart.ID, n int) (LocalIndex, error) {
	if h.Monitor() {
		n -= 32
	}

	if n < 0 || n > 31 {
		return 0, fmt.Errorf("fabric interrupt not routed to %s", h)
	}

	return E51F2M + LocalIndex(n), nil
}

var e51Names = map[LocalIndex]string{
	E51Maintenance: "maintenance",
	E51USocSMB:     "usoc_smb",
	E51USocVC:      "usoc_vc",
	E51G5CMessage:  "g5c_message",
	E51G5CDevRst:   "g5c_devrst",
	E51Wdog4Tout:   "wdog4_tout",
	E51Wdog3Tout:   "wdog3_tout",
	E51Wdog2Tout:   "wdog2_tout",
	E51Wdog1Tout:   "wdog1_tout",
	E51Wdog0Tout:   "wdog0_tout",
	E51Wdog0MVRP:   "wdog0_mvrp",
	E51MMUART0:     "mmuart0",
	E51ENVM:        "envm",
	E51ECCCorrect:  "ecc_correct",
	E51ECCError:    "ecc_error",
	E51SCB:         "scb",
}

var u54Names = map[LocalIndex]string{
	U54MACMMSL:  "mac_mmsl",
	U54MACEMAC:  "mac_emac",
	U54MACQ3:    "mac_queue3",
	U54MACQ2:    "mac_queue2",
	U54MACQ1:    "mac_queue1",
	U54MACInt:   "mac_int",
	U54WdogTout: "wdog_tout",
	U54WdogMVRP: "wdog_mvrp",
	U54MMUART:   "mmuart",
}

// LocalName returns the name of a local interrupt line of a hart.
func LocalName(h hart.ID, i LocalIndex) string {
	if !i.Valid() {
		return fmt.Sprintf("local(%d)", i)
	}

	if i >= E51F2M {
		n := int(i - E51F2M)

		if h.Monitor() {
			n += 32
		}

		return fmt.Sprintf("f2m_%d", n)
	}

	if h.Monitor() {
		return e51Names[i]
	}

	name, ok := u54Names[i]

	switch {
	case !ok:
		return fmt.Sprintf("spare_%d", i)
	case i == U54MMUART:
		return fmt.Sprintf("mmuart%d", h)
	case i <= U54MACInt:
		return fmt.Sprintf("mac%d_%s", MAC(h), name[4:])
	}

	return name
}

// MAC returns the Ethernet controller routed to a U54 hart local lines,
// MAC0 serves harts 1 and 2, MAC1 harts 3 and 4.
func MAC(h hart.ID) int {
	if h >= hart.U54_3 {
		return 1
	}

	return 0
}

// Layout represents the interrupt bindings of the core complex.
type Layout struct {
	// Local holds the local interrupt bindings of each hart
	Local [hart.Count]map[LocalIndex]Handler
	// External holds the PLIC source bindings
	External map[uint32]ExtHandler
}

// BindLocal binds a local interrupt line of a hart.
func (l *Layout) BindLocal(h hart.ID, i LocalIndex, fn Handler) {
	if l.Local[h] == nil {
		l.Local[h] = make(map[LocalIndex]Handler)
	}

	l.Local[h][i] = fn
}

// BindExternal binds a PLIC source.
func (l *Layout) BindExternal(id uint32, fn ExtHandler) {
	if l.External == nil {
		l.External = make(map[uint32]ExtHandler)
	}

	l.External[id] = fn
}

// Build returns the dispatch tables of the layout.
func (l *Layout) Build() (local LocalTables, ext *ExtTable, err error) {
	for _, h := range hart.All() {
		if local[h], err = NewLocalTable(l.Local[h]); err != nil {
			return local, nil, fmt.Errorf("%s, %v", h, err)
		}
	}

	if ext, err = NewExtTable(l.External); err != nil {
		return
	}

	err = local.Validate()

	return
}
