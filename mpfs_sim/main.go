// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/term"

	"github.com/usbarmory/mpfs-hal/board"
	"github.com/usbarmory/mpfs-hal/mpfs_sim/cmd"
	"github.com/usbarmory/mpfs-hal/mpfs_sim/internal"
	"github.com/usbarmory/mpfs-hal/shell"
	"github.com/usbarmory/mpfs-hal/util"
)

//go:embed board.yaml
var defaultBoard []byte

var (
	config  string
	sshAddr string
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	flag.StringVar(&config, "config", "", "board configuration (default: embedded icicle kit)")
	flag.StringVar(&sshAddr, "ssh", "", "serve the console over SSH on this address (e.g. 127.0.0.1:2222)")

	shell.Banner = fmt.Sprintf("%s/%s (%s) • PolarFire SoC HAL simulator", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func loadBoard() (*board.Config, error) {
	if len(config) > 0 {
		return board.Load(config)
	}

	return board.Parse(defaultBoard)
}

func localConsole() {
	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)

		if err != nil {
			log.Fatalf("SIM could not set raw terminal, %v", err)
		}

		defer term.Restore(fd, state)
	}

	shell.Console(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout})
}

func main() {
	flag.Parse()

	b, err := loadBoard()

	if err != nil {
		log.Fatalf("SIM %v", err)
	}

	if cmd.Sim, err = simulator.New(b); err != nil {
		log.Fatalf("SIM %v", err)
	}

	if cmd.Symbols, err = util.SelfSymbolizer(); err != nil {
		log.Printf("SIM symbols unavailable, %v", err)
	}

	shell.Session = cmd.Sim.SetTerminal

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- cmd.Sim.Run(ctx)
	}()

	log.Printf("SIM %s board, %d Hz real time counter", b.Name, b.ClockHz)

	if len(sshAddr) > 0 {
		listener, err := net.Listen("tcp", sshAddr)

		if err != nil {
			log.Fatalf("SIM %v", err)
		}

		defer listener.Close()

		console := &util.Console{
			Banner:  shell.Banner,
			Help:    shell.Help,
			Handler: shell.Handle,
			Session: cmd.Sim.SetTerminal,
		}

		if err = console.Start(listener); err != nil {
			log.Fatalf("SIM %v", err)
		}

		<-ctx.Done()
	} else {
		localConsole()
		cancel()
	}

	if err = <-done; err != nil {
		log.Fatalf("SIM %v", err)
	}

	log.Printf("SIM says goodbye")
}
