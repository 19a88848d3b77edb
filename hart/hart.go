// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hart defines the identity of the five PolarFire SoC MSS harts.
//
// Hart 0 is the E51 monitor core, harts 1 to 4 are the U54 application cores.
// A hart identity is read from mhartid at trap entry and passed explicitly to
// every dispatch function, it is never cached across a trap boundary.
package hart

import (
	"fmt"
	"strconv"
	"strings"
)

// ID represents a validated hart identity.
type ID uint8

const (
	E51 ID = iota
	U54_1
	U54_2
	U54_3
	U54_4
)

// Count is the number of harts in the core complex.
const Count = 5

var names = [Count]string{"E51", "U54_1", "U54_2", "U54_3", "U54_4"}

// Parse converts a raw mhartid value into a hart identity.
func Parse(mhartid uint64) (ID, error) {
	if mhartid >= Count {
		return 0, fmt.Errorf("invalid hart id %d", mhartid)
	}

	return ID(mhartid), nil
}

// Lookup converts a hart name, case insensitive, or a decimal mhartid value
// into a hart identity.
func Lookup(name string) (ID, error) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return ID(i), nil
		}
	}

	if n, err := strconv.ParseUint(name, 10, 8); err == nil {
		return Parse(n)
	}

	return 0, fmt.Errorf("invalid hart %q", name)
}

// Must is like Parse but panics on invalid values, it is meant for constant
// initializers.
func Must(mhartid uint64) ID {
	id, err := Parse(mhartid)

	if err != nil {
		panic(err)
	}

	return id
}

// Valid reports whether the identity is within the core complex.
func (id ID) Valid() bool {
	return id < Count
}

// Monitor reports whether the hart is the E51 monitor core.
func (id ID) Monitor() bool {
	return id == E51
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("hart(%d)", uint8(id))
	}

	return names[id]
}

// All returns every hart identity in ascending order.
func All() []ID {
	return []ID{E51, U54_1, U54_2, U54_3, U54_4}
}

// Application returns the U54 application harts.
func Application() []ID {
	return []ID{U54_1, U54_2, U54_3, U54_4}
}
