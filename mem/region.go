// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"fmt"

	"github.com/usbarmory/tamago/dma"
)

var ScratchRegion *dma.Region

// Init reserves the application hart scratch area, it must only be called
// when running on the target.
func Init() (err error) {
	if ScratchRegion, err = dma.NewRegion(ScratchStart, ScratchSize, false); err != nil {
		return fmt.Errorf("could not allocate scratch region, %v", err)
	}

	ScratchRegion.Reserve(ScratchSize, 0)

	return
}

// Copy reads size bytes at start, or writes w when not empty, through a
// transient unsafe DMA region.
func Copy(start uint, size int, w []byte) (b []byte, err error) {
	r, err := dma.NewRegion(start, size, true)

	if err != nil {
		return nil, fmt.Errorf("could not allocate memory copy region, %v", err)
	}

	addr, buf := r.Reserve(size, 0)
	defer r.Release(addr)

	if len(w) > 0 {
		copy(buf, w)
	} else {
		b = make([]byte, size)
		copy(b, buf)
	}

	return
}
