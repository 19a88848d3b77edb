// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package cmd

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/mem"
	"github.com/usbarmory/mpfs-hal/shell"
)

const maxBufferSize = 0x10000

func init() {
	shell.Add(shell.Cmd{
		Name:    "peek",
		Args:    2,
		Pattern: regexp.MustCompile(`^peek ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex address> <size>",
		Help:    "memory display (use with caution)",
		Fn:      memReadCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "poke",
		Args:    2,
		Pattern: regexp.MustCompile(`^poke ([[:xdigit:]]+) ([[:xdigit:]]+)$`),
		Syntax:  "<hex address> <hex value>",
		Help:    "memory write   (use with caution)",
		Fn:      memWriteCmd,
	})
}

func parseAddress(arg string) (uint, error) {
	addr, err := strconv.ParseUint(arg, 16, 32)

	if err != nil {
		return 0, fmt.Errorf("invalid address, %v", err)
	}

	if addr%4 != 0 {
		return 0, fmt.Errorf("only 32-bit aligned accesses are supported")
	}

	return uint(addr), nil
}

func memReadCmd(_ *term.Terminal, arg []string) (string, error) {
	addr, err := parseAddress(arg[0])

	if err != nil {
		return "", err
	}

	size, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil || size%4 != 0 || size == 0 || size > maxBufferSize {
		return "", fmt.Errorf("size must be a multiple of 4 and <= %d", maxBufferSize)
	}

	buf, err := mem.Copy(addr, int(size), nil)

	if err != nil {
		return "", err
	}

	return hex.Dump(buf), nil
}

func memWriteCmd(_ *term.Terminal, arg []string) (string, error) {
	addr, err := parseAddress(arg[0])

	if err != nil {
		return "", err
	}

	if r, ok := mem.Lookup(uint64(addr)); ok && !r.W {
		return "", fmt.Errorf("address %#x is within the protected %s region", addr, r.Name)
	}

	val, err := strconv.ParseUint(arg[1], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid data, %v", err)
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(val))

	_, err = mem.Copy(addr, len(buf), buf)

	return "", err
}
