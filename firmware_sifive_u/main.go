// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"
	_ "unsafe"

	"github.com/usbarmory/tamago/board/qemu/sifive_u"
	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/mpfs-hal/board"
	"github.com/usbarmory/mpfs-hal/firmware_sifive_u/cmd"
	"github.com/usbarmory/mpfs-hal/hal"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/mem"
	"github.com/usbarmory/mpfs-hal/shell"
	"github.com/usbarmory/mpfs-hal/trap"
)

// polling interval of the E51 dispatch loop
const pollInterval = time.Millisecond

//go:linkname ramStart runtime/goos.RamStart
var ramStart uint64 = mem.HALStart

//go:linkname ramSize runtime/goos.RamSize
var ramSize uint64 = mem.HALSize

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	dma.Init(mem.HALDMAStart, mem.HALDMASize)

	if err := mem.Init(); err != nil {
		log.Fatalf("HAL %v", err)
	}

	shell.Banner = fmt.Sprintf("%s/%s (%s) • PolarFire SoC HAL (M-mode)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func layout() *irq.Layout {
	l := &irq.Layout{}

	l.BindExternal(irq.MMUART(0), func() irq.Action {
		log.Printf("HAL mmuart0 interrupt")
		return irq.KeepEnabled
	})

	return l
}

// The TamaGo runtime owns the trap vector, interrupts are therefore left
// globally disabled and serviced by polling.
func service(h *hal.HAL) {
	for {
		serviced, err := h.Dispatcher.Poll(hart.E51)

		if err != nil {
			return
		}

		if !serviced {
			time.Sleep(pollInterval)
		}
	}
}

func halt(f *trap.Fault) {
	cmd.AddFault(f)
}

func main() {
	h, err := hal.New(hal.Config{
		Board:  board.Default(),
		Layout: layout(),
		Halt:   halt,
	}, hal.Machine())

	if err != nil {
		log.Fatalf("HAL %v", err)
	}

	if err = configurePMP(pmpIndex); err != nil {
		log.Fatalf("HAL could not configure PMP, %v", err)
	}

	h.InitOnReset()

	if err = h.InitHart(hart.E51); err != nil {
		log.Fatalf("HAL %v", err)
	}

	cmd.HAL = h
	cmd.PMPIndex = pmpIndex
	go service(h)

	shell.Console(sifive_u.UART0)

	log.Printf("HAL says goodbye")
}
