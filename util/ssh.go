// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// Console represents an SSH console instance.
type Console struct {
	// Banner is the login welcome banner
	Banner string
	// Help is invoked to print the command help on login
	Help func(*term.Terminal) string
	// Handler is the terminal command handler, io.EOF closes the session
	Handler func(*term.Terminal, string) error
	// Session is invoked with the terminal of each new session, when not
	// nil
	Session func(*term.Terminal)
}

// ptyDimensions parses the terminal size of a pty-req payload (RFC4254,
// 6.2).
func ptyDimensions(payload []byte) (w uint32, h uint32, err error) {
	if len(payload) < 4 {
		return 0, 0, errors.New("malformed pty-req request")
	}

	n := int(binary.BigEndian.Uint32(payload))

	if len(payload) < 4+n+8 {
		return 0, 0, errors.New("malformed pty-req request")
	}

	w = binary.BigEndian.Uint32(payload[4+n:])
	h = binary.BigEndian.Uint32(payload[4+n+4:])

	return
}

// windowDimensions parses the terminal size of a window-change payload
// (RFC4254, 6.7).
func windowDimensions(payload []byte) (w uint32, h uint32, err error) {
	if len(payload) < 8 {
		return 0, 0, errors.New("malformed window-change request")
	}

	return binary.BigEndian.Uint32(payload), binary.BigEndian.Uint32(payload[4:]), nil
}

func (c *Console) session(t *term.Terminal, conn io.Closer) {
	defer conn.Close()

	fmt.Fprintf(t, "%s\n", c.Banner)

	if c.Help != nil {
		fmt.Fprintf(t, "%s\n", string(t.Escape.Cyan)+c.Help(t)+string(t.Escape.Reset))
	}

	if c.Session != nil {
		c.Session(t)
	}

	for {
		line, err := t.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			log.Printf("SIM readline error, %v", err)
			continue
		}

		if err = c.Handler(t, line); err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
	}

	log.Printf("SIM closing ssh session")
}

func (c *Console) handleChannel(newChannel ssh.NewChannel) {
	if kind := newChannel.ChannelType(); kind != "session" {
		_ = newChannel.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %s", kind))
		return
	}

	conn, requests, err := newChannel.Accept()

	if err != nil {
		log.Printf("SIM error accepting channel, %v", err)
		return
	}

	t := term.NewTerminal(conn, "")
	t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))

	go c.session(t, conn)

	go func() {
		for req := range requests {
			var w, h uint32

			switch req.Type {
			case "shell":
				// payload commands are not supported
				if len(req.Payload) == 0 {
					_ = req.Reply(true, nil)
				}
			case "pty-req":
				if w, h, err = ptyDimensions(req.Payload); err != nil {
					log.Printf("SIM %v", err)
					continue
				}

				_ = t.SetSize(int(w), int(h))
				_ = req.Reply(true, nil)
			case "window-change":
				if w, h, err = windowDimensions(req.Payload); err != nil {
					log.Printf("SIM %v", err)
					continue
				}

				_ = t.SetSize(int(w), int(h))
			}
		}
	}()
}

func (c *Console) listen(listener net.Listener, srv *ssh.ServerConfig) {
	for {
		conn, err := listener.Accept()

		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			log.Printf("SIM error accepting connection, %v", err)
			continue
		}

		sshConn, chans, reqs, err := ssh.NewServerConn(conn, srv)

		if err != nil {
			log.Printf("SIM error accepting handshake, %v", err)
			continue
		}

		log.Printf("SIM new ssh connection from %s (%s)", sshConn.RemoteAddr(), sshConn.ClientVersion())

		go ssh.DiscardRequests(reqs)

		go func() {
			for newChannel := range chans {
				go c.handleChannel(newChannel)
			}
		}()
	}
}

// Start instantiates an SSH console on the given listener, with an
// ephemeral host key and no client authentication. The console stops once
// the listener is closed.
func (c *Console) Start(listener net.Listener) (err error) {
	if c.Handler == nil {
		return errors.New("missing console handler")
	}

	srv := &ssh.ServerConfig{
		NoClientAuth: true,
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	if err != nil {
		return fmt.Errorf("private key generation error, %v", err)
	}

	signer, err := ssh.NewSignerFromKey(key)

	if err != nil {
		return fmt.Errorf("key conversion error, %v", err)
	}

	log.Printf("SIM starting ssh server on %s (%s)", listener.Addr(), ssh.FingerprintSHA256(signer.PublicKey()))

	srv.AddHostKey(signer)

	go c.listen(listener, srv)

	return
}
