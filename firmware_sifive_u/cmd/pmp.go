// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64
// +build tamago,riscv64

package cmd

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/usbarmory/tamago/riscv"
	"github.com/usbarmory/tamago/soc/sifive/fu540"

	"github.com/usbarmory/mpfs-hal/mem"
	"github.com/usbarmory/mpfs-hal/shell"
)

// PMPIndex is the first PMP entry programmed with the memory regions.
var PMPIndex int

func init() {
	shell.Add(shell.Cmd{
		Name: "pmp",
		Help: "memory regions and their PMP entries",
		Fn:   pmpCmd,
	})
}

func pmpCmd(_ *term.Terminal, _ []string) (string, error) {
	var buf bytes.Buffer

	t := tabwriter.NewWriter(&buf, 8, 8, 1, ' ', 0)
	fmt.Fprintf(t, "entry\tregion\tstart\tend\tperm\tstate\n")

	for n, r := range mem.Regions() {
		i := PMPIndex + 1 + n
		addr, rd, wr, ex, a, _, err := fu540.RV64.ReadPMP(i)

		if err != nil {
			return "", fmt.Errorf("%s region, %v", r.Name, err)
		}

		state := "ok"

		if a != riscv.PMP_CFG_A_TOR || addr != r.End || rd != r.R || wr != r.W || ex != r.X {
			state = fmt.Sprintf("mismatch (addr:%#x A:%d %s)", addr, a, perm(rd, wr, ex))
		}

		fmt.Fprintf(t, "%.2d\t%s\t%#.8x\t%#.8x\t%s\t%s\n", i, r.Name, r.Start, r.End, perm(r.R, r.W, r.X), state)
	}

	t.Flush()

	return buf.String(), nil
}

func perm(r, w, x bool) string {
	b := []byte("---")

	if r {
		b[0] = 'r'
	}

	if w {
		b[1] = 'w'
	}

	if x {
		b[2] = 'x'
	}

	return string(b)
}
