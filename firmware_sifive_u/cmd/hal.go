// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

// Package cmd implements the firmware console commands.
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hal"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/shell"
	"github.com/usbarmory/mpfs-hal/trap"
)

// HAL is the dispatch core inspected by the console.
var HAL *hal.HAL

var (
	mu     sync.Mutex
	faults []*trap.Fault
)

// AddFault records a fatal trap for the stats command.
func AddFault(f *trap.Fault) {
	mu.Lock()
	defer mu.Unlock()

	faults = append(faults, f)
}

func init() {
	shell.Add(shell.Cmd{
		Name: "stats",
		Help: "dispatch counters",
		Fn:   statsCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "prio",
		Args:    2,
		Pattern: regexp.MustCompile(`^prio (\d+) (\d+)$`),
		Syntax:  "<source> <priority>",
		Help:    "set PLIC source priority",
		Fn:      prioCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "plic",
		Args:    2,
		Pattern: regexp.MustCompile(`^plic (\d+) (on|off)$`),
		Syntax:  "<source> <on|off>",
		Help:    "enable/disable PLIC source on E51",
		Fn:      plicCmd,
	})
}

func parseSource(arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)

	if err != nil || id == plic.Invalid || id >= plic.NumSources {
		return 0, fmt.Errorf("invalid PLIC source %s", arg)
	}

	return uint32(id), nil
}

func statsCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	if HAL == nil {
		return "", errors.New("HAL not initialized")
	}

	f := HAL.CSR(hart.E51)

	fmt.Fprintf(&buf, "%s %s mie:%#x mip:%#x mtime:%d ticks:%d\n",
		hart.E51, HAL.Dispatcher.Stats(hart.E51), f.Read(csr.MIE), f.Read(csr.MIP),
		HAL.CLINT.Time(), HAL.Ticker.Count(hart.E51))

	mu.Lock()
	defer mu.Unlock()

	for _, f := range faults {
		fmt.Fprintf(&buf, "%s\n", f.Dump())
	}

	return buf.String(), nil
}

func prioCmd(_ *term.Terminal, arg []string) (string, error) {
	if HAL == nil {
		return "", errors.New("HAL not initialized")
	}

	id, err := parseSource(arg[0])

	if err != nil {
		return "", err
	}

	prio, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil || prio > plic.MaxPriority {
		return "", fmt.Errorf("invalid priority %s", arg[1])
	}

	HAL.PLIC.SetPriority(id, uint32(prio))

	return "", nil
}

func plicCmd(_ *term.Terminal, arg []string) (string, error) {
	if HAL == nil {
		return "", errors.New("HAL not initialized")
	}

	id, err := parseSource(arg[0])

	if err != nil {
		return "", err
	}

	if arg[1] == "on" {
		HAL.PLIC.Enable(hart.E51, id)
	} else {
		HAL.PLIC.Disable(hart.E51, id)
	}

	return "", nil
}
