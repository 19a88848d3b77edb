// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package spin provides the busy-wait primitives used by harts waiting on
// shared state. Waits cannot be cancelled.
package spin

// Until busy-waits until cond returns true, wait is invoked between checks
// when not nil.
func Until(cond func() bool, wait func()) {
	for !cond() {
		if wait != nil {
			wait()
		}
	}
}

// Polls is like Until but returns the number of failed checks.
func Polls(cond func() bool, wait func()) (n int) {
	for !cond() {
		n++

		if wait != nil {
			wait()
		}
	}

	return
}

// Forever halts the calling hart.
func Forever() {
	for {
	}
}
