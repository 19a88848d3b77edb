// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/usbarmory/mpfs-hal/clint"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/ipi"
	"github.com/usbarmory/mpfs-hal/sim"
)

func newReleaser(soc *sim.SoC) *Releaser {
	p := &ipi.IPI{CLINT: &clint.CLINT{Bus: soc.CLINT}}

	for _, h := range hart.All() {
		p.Harts[h] = soc.CSR(h)
	}

	return &Releaser{
		IPI:  p,
		HLS:  &HLS{},
		From: hart.E51,
		Wait: runtime.Gosched,
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	deadline := time.Now().Add(5 * time.Second)

	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}

		runtime.Gosched()
	}
}

func TestStep(t *testing.T) {
	soc := sim.New()
	r := newReleaser(soc)
	target := hart.U54_2
	polls := 0

	if s := r.Step(target, CheckWFI, &polls); s != CheckWFI {
		t.Fatalf("unparked hart: %s", s)
	}

	r.HLS.Set(target, InWFI)

	if s := r.Step(target, CheckWFI, &polls); s != SendWFI {
		t.Fatalf("parked hart: %s", s)
	}

	if s := r.Step(target, SendWFI, &polls); s != CheckWake || !r.IPI.Pending(target) {
		t.Fatalf("send: %s pending:%v", s, r.IPI.Pending(target))
	}

	for i := 0; i < RetryPolls; i++ {
		if s := r.Step(target, CheckWake, &polls); s != CheckWake {
			t.Fatalf("poll %d: %s", i, s)
		}
	}

	if s := r.Step(target, CheckWake, &polls); s != SendWFI {
		t.Fatalf("retry: %s", s)
	}

	r.HLS.Set(target, PassedWFI)

	if s := r.Step(target, CheckWake, &polls); s != Released {
		t.Fatalf("acknowledged: %s", s)
	}
}

func TestReleaseAll(t *testing.T) {
	soc := sim.New()
	defer soc.Close()

	r := newReleaser(soc)

	var wg sync.WaitGroup

	for _, h := range hart.Application() {
		wg.Add(1)

		go func(h hart.ID) {
			defer wg.Done()
			Park(r.IPI, r.HLS, h)
		}(h)
	}

	r.ReleaseAll()
	wg.Wait()

	for _, h := range hart.Application() {
		if i := r.HLS.Get(h); i != PassedWFI {
			t.Errorf("%s: %s", h, i)
		}
	}

	if r.HLS.Get(hart.E51) != Unknown {
		t.Errorf("monitor indicator modified")
	}
}

func TestReleaseRetry(t *testing.T) {
	soc := sim.New()
	r := newReleaser(soc)
	target := hart.U54_3

	r.HLS.Set(target, InWFI)

	raises := make(chan int)

	go func() {
		raises <- r.Release(target)
	}()

	waitFor(t, func() bool { return r.IPI.Pending(target) }, "first raise")

	// missed wake up
	r.IPI.Clear(target)

	waitFor(t, func() bool { return r.IPI.Pending(target) }, "second raise")

	r.HLS.Set(target, PassedWFI)

	select {
	case n := <-raises:
		if n < 2 {
			t.Fatalf("raises %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("release did not complete")
	}
}

func TestIndicatorString(t *testing.T) {
	if InWFI.String() != "in WFI" || Indicator(1).String() != "0x1" {
		t.Fatalf("unexpected names %q %q", InWFI, Indicator(1))
	}
}
