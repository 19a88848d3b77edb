// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmd implements the simulator console commands.
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/csr"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/irq"
	"github.com/usbarmory/mpfs-hal/mpfs_sim/internal"
	"github.com/usbarmory/mpfs-hal/plic"
	"github.com/usbarmory/mpfs-hal/shell"
	"github.com/usbarmory/mpfs-hal/tick"
	"github.com/usbarmory/mpfs-hal/trap"
	"github.com/usbarmory/mpfs-hal/util"
)

// Sim is the simulator controlled by the console.
var Sim *simulator.Simulator

// Symbols resolves fault addresses when not nil.
var Symbols *util.Symbolizer

func init() {
	shell.Add(shell.Cmd{
		Name: "harts",
		Help: "hart state",
		Fn:   hartsCmd,
	})

	shell.Add(shell.Cmd{
		Name: "stats",
		Help: "dispatch counters",
		Fn:   statsCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "irq",
		Args:    1,
		Pattern: regexp.MustCompile(`^irq (\d+)$`),
		Syntax:  "<source>",
		Help:    "raise PLIC source",
		Fn:      irqCmd,
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
		Args:    3,
		Pattern: regexp.MustCompile(`^plic (\S+) (\d+) (on|off)$`),
		Syntax:  "<hart> <source> <on|off>",
		Help:    "enable/disable PLIC source",
		Fn:      plicCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "local",
		Args:    2,
		Pattern: regexp.MustCompile(`^local (\S+) (\d+)$`),
		Syntax:  "<hart> <index>",
		Help:    "assert local interrupt",
		Fn:      localCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "ipi",
		Args:    1,
		Pattern: regexp.MustCompile(`^ipi (\S+)$`),
		Syntax:  "<hart>",
		Help:    "raise software interrupt from E51",
		Fn:      ipiCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "tick",
		Args:    1,
		Pattern: regexp.MustCompile(`^tick (\d+)$`),
		Syntax:  "<ms>",
		Help:    "advance real time counter",
		Fn:      tickCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "fault",
		Args:    3,
		Pattern: regexp.MustCompile(`^fault (\S+) ([[:xdigit:]]+)(?: ([[:xdigit:]]+))?$`),
		Syntax:  "<hart> <hex mcause> (hex mepc)?",
		Help:    "inject trap (halts the hart on fatal causes)",
		Fn:      faultCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "beu",
		Args:    3,
		Pattern: regexp.MustCompile(`^beu (\S+) (\d+)(?: ([[:xdigit:]]+))?$`),
		Syntax:  "<hart> <event> (hex addr)?",
		Help:    "record bus error event",
		Fn:      beuCmd,
	})
}

func parseHart(arg string) (hart.ID, error) {
	if Sim == nil {
		return 0, errors.New("simulator not running")
	}

	return hart.Lookup(arg)
}

func parseSource(arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)

	if err != nil || id == plic.Invalid || id >= plic.NumSources {
		return 0, fmt.Errorf("invalid PLIC source %s", arg)
	}

	return uint32(id), nil
}

func hartsCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	if Sim == nil {
		return "", errors.New("simulator not running")
	}

	t := tabwriter.NewWriter(&buf, 8, 8, 1, ' ', 0)
	fmt.Fprintf(t, "hart\tstate\tboot\tmie\tmip\twfi\tticks\tevents\n")

	for _, h := range hart.All() {
		c := Sim.SoC.Harts[h]
		state := "running"

		if c.Closed() {
			state = "halted"
		}

		fmt.Fprintf(t, "%s\t%s\t%s\t%#x\t%#x\t%d\t%d\t%d\n",
			h, state, Sim.HAL.HLS.Get(h), c.Read(csr.MIE), c.Read(csr.MIP),
			c.WFI(), Sim.HAL.Ticker.Count(h), Sim.Events(h))
	}

	t.Flush()

	return buf.String(), nil
}

func statsCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	if Sim == nil {
		return "", errors.New("simulator not running")
	}

	for _, h := range hart.All() {
		claims, completes := Sim.SoC.PLIC.Claims(h)
		fmt.Fprintf(&buf, "%-6s %s claims:%d completes:%d ipi:%d\n",
			h, Sim.HAL.Dispatcher.Stats(h), claims, completes, Sim.HAL.IPI.Count(h))
	}

	for _, f := range Sim.Faults() {
		fmt.Fprintf(&buf, "%s\n", f)
	}

	return buf.String(), nil
}

func irqCmd(_ *term.Terminal, arg []string) (string, error) {
	if Sim == nil {
		return "", errors.New("simulator not running")
	}

	id, err := parseSource(arg[0])

	if err != nil {
		return "", err
	}

	Sim.SoC.PLIC.Raise(id)

	if !Sim.HAL.External().Bound(id) {
		return fmt.Sprintf("source %d has no handler, it stays enabled once claimed", id), nil
	}

	return "", nil
}

func prioCmd(_ *term.Terminal, arg []string) (string, error) {
	if Sim == nil {
		return "", errors.New("simulator not running")
	}

	id, err := parseSource(arg[0])

	if err != nil {
		return "", err
	}

	prio, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil || prio > plic.MaxPriority {
		return "", fmt.Errorf("invalid priority %s", arg[1])
	}

	Sim.HAL.PLIC.SetPriority(id, uint32(prio))

	return "", nil
}

func plicCmd(_ *term.Terminal, arg []string) (string, error) {
	h, err := parseHart(arg[0])

	if err != nil {
		return "", err
	}

	id, err := parseSource(arg[1])

	if err != nil {
		return "", err
	}

	if arg[2] == "on" {
		Sim.HAL.PLIC.Enable(h, id)
	} else {
		Sim.HAL.PLIC.Disable(h, id)
	}

	return "", nil
}

func localCmd(_ *term.Terminal, arg []string) (string, error) {
	h, err := parseHart(arg[0])

	if err != nil {
		return "", err
	}

	n, err := strconv.ParseUint(arg[1], 10, 8)

	if err != nil || !irq.LocalIndex(n).Valid() {
		return "", fmt.Errorf("invalid local interrupt %s", arg[1])
	}

	i := irq.LocalIndex(n)
	Sim.SoC.Harts[h].Assert(i.Mask(), true)

	return fmt.Sprintf("%s: asserted %s", h, irq.LocalName(h, i)), nil
}

func ipiCmd(_ *term.Terminal, arg []string) (string, error) {
	h, err := parseHart(arg[0])

	if err != nil {
		return "", err
	}

	Sim.HAL.IPI.Raise(hart.E51, h)

	return "", nil
}

func tickCmd(_ *term.Terminal, arg []string) (string, error) {
	if Sim == nil {
		return "", errors.New("simulator not running")
	}

	ms, err := strconv.ParseUint(arg[0], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid period, %v", err)
	}

	Sim.SoC.CLINT.Advance(tick.Increment(Sim.HAL.Board.ClockHz, ms))

	return fmt.Sprintf("mtime:%d", Sim.HAL.CLINT.Time()), nil
}

func faultCmd(_ *term.Terminal, arg []string) (res string, err error) {
	h, err := parseHart(arg[0])

	if err != nil {
		return
	}

	cause, err := strconv.ParseUint(arg[1], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid cause, %v", err)
	}

	var pc uint64

	if len(arg[2]) > 0 {
		if pc, err = strconv.ParseUint(arg[2], 16, 64); err != nil {
			return "", fmt.Errorf("invalid address, %v", err)
		}
	}

	if err = Sim.HAL.Dispatcher.Inject(h, csr.Cause(cause), pc); err == nil {
		return fmt.Sprintf("%s: serviced %s", h, csr.Cause(cause)), nil
	}

	var f *trap.Fault

	if !errors.As(err, &f) {
		return "", err
	}

	res = f.Dump()

	if Symbols != nil && pc != 0 {
		res += "\n" + Symbols.PCToLine(pc)
	}

	return res, nil
}

func beuCmd(_ *term.Terminal, arg []string) (string, error) {
	h, err := parseHart(arg[0])

	if err != nil {
		return "", err
	}

	code, err := strconv.ParseUint(arg[1], 10, 8)

	if err != nil {
		return "", fmt.Errorf("invalid event, %v", err)
	}

	e, err := beu.ParseEvent(code)

	if err != nil {
		return "", err
	}

	var addr uint64

	if len(arg[2]) > 0 {
		if addr, err = strconv.ParseUint(arg[2], 16, 64); err != nil {
			return "", fmt.Errorf("invalid address, %v", err)
		}
	}

	Sim.SoC.BEU.Record(h, e, addr)

	return "", nil
}
