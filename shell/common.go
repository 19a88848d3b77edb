// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"runtime/debug"
	"runtime/pprof"

	"golang.org/x/term"
)

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   helpCmd,
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	Add(Cmd{
		Name:    "stack",
		Args:    1,
		Pattern: regexp.MustCompile(`^stack( all)?$`),
		Syntax:  "(all)?",
		Help:    "goroutine stack trace",
		Fn:      stackCmd,
	})

	Add(Cmd{
		Name:    "runtime",
		Args:    1,
		Pattern: regexp.MustCompile(`^runtime( gc)?$`),
		Syntax:  "(gc)?",
		Help:    "runtime statistics, optionally after garbage collection",
		Fn:      runtimeCmd,
	})
}

func helpCmd(term *term.Terminal, _ []string) (string, error) {
	return string(term.Escape.Cyan) + Help(term) + string(term.Escape.Reset), nil
}

func exitCmd(_ *term.Terminal, _ []string) (string, error) {
	return "logout", io.EOF
}

func stackCmd(_ *term.Terminal, arg []string) (string, error) {
	if len(arg[0]) == 0 {
		return string(debug.Stack()), nil
	}

	buf := new(bytes.Buffer)
	pprof.Lookup("goroutine").WriteTo(buf, 1)

	return buf.String(), nil
}

func runtimeCmd(_ *term.Terminal, arg []string) (string, error) {
	var m runtime.MemStats

	if len(arg[0]) > 0 {
		runtime.GC()
	}

	runtime.ReadMemStats(&m)

	return fmt.Sprintf("%s/%s (%s) goroutines:%d heap:%d/%d gc:%d",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), runtime.NumGoroutine(),
		m.HeapAlloc, m.HeapSys, m.NumGC), nil
}
