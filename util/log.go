// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/mutex"
)

const outputLimit = 1024
const flushChr = 0x0a // \n

// output buffers, one per hart
var output [hart.Count]bytes.Buffer

// console serializes output from different harts
var console mutex.Mutex

// Wait is invoked while waiting for the console lock, when not nil.
var Wait func()

func buffer(h hart.ID, c byte) (buf *bytes.Buffer, flush bool) {
	buf = &output[h]
	buf.WriteByte(c)

	return buf, c == flushChr || buf.Len() > outputLimit
}

// BufferedStdoutLog buffers hart output until a newline or the buffer limit,
// then writes it to stdout.
func BufferedStdoutLog(h hart.ID, c byte) {
	console.Take(Wait)
	defer console.Release()

	buf, flush := buffer(h, c)

	if !flush {
		return
	}

	os.Stdout.Write(buf.Bytes())
	buf.Reset()
}

func color(h hart.ID, t *term.Terminal) []byte {
	switch h {
	case hart.E51:
		return t.Escape.Green
	case hart.U54_1:
		return t.Escape.Yellow
	case hart.U54_2:
		return t.Escape.Blue
	case hart.U54_3:
		return t.Escape.Magenta
	default:
		return t.Escape.Cyan
	}
}

// BufferedTermLog is like BufferedStdoutLog but writes to a terminal, each
// hart in its own color.
func BufferedTermLog(h hart.ID, c byte, t *term.Terminal) {
	console.Take(Wait)
	defer console.Release()

	buf, flush := buffer(h, c)

	if !flush {
		return
	}

	t.Write(color(h, t))
	t.Write(buf.Bytes())
	t.Write(t.Escape.Reset)

	buf.Reset()
}

// HartWriter implements io.Writer over the buffered log of a hart.
type HartWriter struct {
	// Hart is the writing hart
	Hart hart.ID
	// Term is the output terminal, stdout is used when nil
	Term *term.Terminal
}

func (w *HartWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		if w.Term != nil {
			BufferedTermLog(w.Hart, c, w.Term)
		} else {
			BufferedStdoutLog(w.Hart, c)
		}
	}

	return len(p), nil
}

var _ io.Writer = &HartWriter{}
