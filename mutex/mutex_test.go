// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mutex

import (
	"runtime"
	"sync"
	"testing"
)

func TestTakeRelease(t *testing.T) {
	var m Mutex

	if !m.TryTake() || !m.Held() {
		t.Fatal("could not take unlocked mutex")
	}

	if m.TryTake() {
		t.Fatal("took locked mutex")
	}

	m.Release()

	if m.Held() {
		t.Fatal("mutex held after release")
	}
}

func TestContention(t *testing.T) {
	var m Mutex
	var wg sync.WaitGroup

	counter := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for n := 0; n < 1000; n++ {
				m.Take(runtime.Gosched)
				counter++
				m.Release()
			}
		}()
	}

	wg.Wait()

	if counter != 5000 {
		t.Fatalf("counter = %d", counter)
	}
}
