// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package shell implements a line oriented command console.
package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"text/tabwriter"

	"golang.org/x/term"
)

// Banner is printed on console sessions.
var Banner string

// Session is invoked with the terminal of each console session, and with nil
// once it ends, when not nil.
var Session func(t *term.Terminal)

// CmdFn represents a command handler.
type CmdFn func(term *term.Terminal, arg []string) (res string, err error)

// Cmd represents a console command.
type Cmd struct {
	Name    string
	Args    int
	Pattern *regexp.Regexp
	Syntax  string
	Help    string
	Fn      CmdFn
}

var cmds = make(map[string]*Cmd)

// Add registers a console command, commands without arguments match their
// name when Pattern is nil.
func Add(cmd Cmd) {
	if cmd.Pattern == nil {
		cmd.Pattern = regexp.MustCompile(`^` + cmd.Name + `$`)
	}

	cmds[cmd.Name] = &cmd
}

// Help returns the help of all registered commands.
func Help(term *term.Terminal) string {
	var help bytes.Buffer
	var names []string

	t := tabwriter.NewWriter(&help, 16, 8, 0, '\t', tabwriter.TabIndent)

	for name := range cmds {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		_, _ = fmt.Fprintf(t, "%s\t%s\t # %s\n", cmds[name].Name, cmds[name].Syntax, cmds[name].Help)
	}

	_ = t.Flush()

	return help.String()
}

// Handle executes a command line, io.EOF is returned on session exit.
func Handle(term *term.Terminal, line string) (err error) {
	var match *Cmd
	var arg []string
	var res string

	if len(line) == 0 {
		return
	}

	for _, cmd := range cmds {
		if m := cmd.Pattern.FindStringSubmatch(line); len(m) > 0 && (len(m)-1 == cmd.Args) {
			match = cmd
			arg = m[1:]
			break
		}
	}

	if match == nil {
		return errors.New("unknown command, type `help`")
	}

	res, err = match.Fn(term, arg)

	if len(res) > 0 {
		fmt.Fprintln(term, res)
	}

	return
}

// Console runs a console session over the argument stream until exit.
func Console(rw io.ReadWriter) {
	t := term.NewTerminal(rw, "")
	t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))

	fmt.Fprintf(t, "%s\n", Banner)
	fmt.Fprintf(t, "%s\n", string(t.Escape.Cyan)+Help(t)+string(t.Escape.Reset))

	if Session != nil {
		Session(t)
		defer Session(nil)
	}

	for {
		line, err := t.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			log.Printf("readline error, %v", err)
			continue
		}

		if err = Handle(t, line); err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
	}
}
