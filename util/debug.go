// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"debug/elf"
	"debug/gosym"
	"errors"
	"fmt"
	"os"
)

// Symbolizer resolves program counters and symbols of a Go ELF executable.
type Symbolizer struct {
	exe   *elf.File
	table *gosym.Table
}

// NewSymbolizer parses an ELF executable image.
func NewSymbolizer(buf []byte) (s *Symbolizer, err error) {
	s = &Symbolizer{}

	if s.exe, err = elf.NewFile(bytes.NewReader(buf)); err != nil {
		return nil, err
	}

	text := s.exe.Section(".text")
	pclntab := s.exe.Section(".gopclntab")

	if text == nil || pclntab == nil {
		return nil, errors.New("missing Go line table")
	}

	lineTableData, err := pclntab.Data()

	if err != nil {
		return nil, err
	}

	var symTableData []byte

	if symtab := s.exe.Section(".gosymtab"); symtab != nil {
		if symTableData, err = symtab.Data(); err != nil {
			return nil, err
		}
	}

	if s.table, err = gosym.NewTable(symTableData, gosym.NewLineTable(lineTableData, text.Addr)); err != nil {
		return nil, err
	}

	return
}

// SelfSymbolizer returns a symbolizer of the running executable.
func SelfSymbolizer() (*Symbolizer, error) {
	path, err := os.Executable()

	if err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return NewSymbolizer(buf)
}

// LookupSym returns the ELF symbol with the argument name.
func (s *Symbolizer) LookupSym(name string) (*elf.Symbol, error) {
	syms, err := s.exe.Symbols()

	if err != nil {
		return nil, err
	}

	for _, sym := range syms {
		if sym.Name == name {
			return &sym, nil
		}
	}

	return nil, errors.New("symbol not found")
}

// PCToLine returns the function, file and line of a program counter, or the
// bare address when unknown.
func (s *Symbolizer) PCToLine(pc uint64) string {
	file, line, fn := s.table.PCToLine(pc)

	if fn == nil {
		return fmt.Sprintf("%#x", pc)
	}

	return fmt.Sprintf("%s %s:%d", fn.Name, file, line)
}
