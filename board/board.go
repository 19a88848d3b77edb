// Copyright (c) The mpfs-hal authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package board provides the PolarFire SoC board configuration consumed by
// the HAL: real time counter clock, per-hart system tick rates, bus error
// unit masks and PLIC source priorities.
//
// Compile time defaults can be overridden by a YAML file such as:
//
//	name: icicle
//	clock_hz: 1000000
//	harts:
//	  e51:
//	    tick: false
//	  u54_1:
//	    tick_ms: 10
//	    beu:
//	      enable: 0xe0
//	      plic: 0xe0
//	sources:
//	  - id: 90
//	    priority: 7
//	    hart: u54_1
package board

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/usbarmory/mpfs-hal/beu"
	"github.com/usbarmory/mpfs-hal/hart"
	"github.com/usbarmory/mpfs-hal/plic"
)

// Defaults
const (
	// DefaultClockHz is the real time counter reference clock
	DefaultClockHz = 1000000
	// DefaultTickMs is the system tick period of each hart
	DefaultTickMs = 5
)

// BEU represents the bus error unit masks of a hart.
type BEU struct {
	Enable uint64 `yaml:"enable"`
	PLIC   uint64 `yaml:"plic"`
	Local  uint64 `yaml:"local"`
}

// Hart represents the configuration of a hart.
type Hart struct {
	// Tick enables the system tick, nil selects the default (enabled)
	Tick *bool `yaml:"tick"`
	// TickMs is the system tick period
	TickMs uint64 `yaml:"tick_ms"`
	// BEU holds the bus error unit masks
	BEU BEU `yaml:"beu"`
}

// TickEnabled reports whether the system tick is enabled.
func (h *Hart) TickEnabled() bool {
	return h.Tick == nil || *h.Tick
}

// Source represents a PLIC source setting.
type Source struct {
	// ID is the PLIC source
	ID uint32 `yaml:"id"`
	// Priority is the source priority
	Priority uint32 `yaml:"priority"`
	// Hart is the hart the source is enabled on, the E51 when empty
	Hart string `yaml:"hart"`

	target hart.ID
}

// Target returns the hart the source is enabled on.
func (s *Source) Target() hart.ID {
	return s.target
}

// Config represents a board configuration.
type Config struct {
	// Name is the board name
	Name string `yaml:"name"`
	// ClockHz is the real time counter reference clock
	ClockHz uint64 `yaml:"clock_hz"`
	// Harts holds hart settings by hart name
	Harts map[string]*Hart `yaml:"harts"`
	// Sources holds PLIC source priorities
	Sources []Source `yaml:"sources"`

	harts [hart.Count]Hart
}

// Default returns the default board configuration.
func Default() *Config {
	c := &Config{Name: "default"}

	if err := c.normalize(); err != nil {
		panic(err)
	}

	return c
}

// Load reads a YAML board configuration file.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	c, err := Parse(buf)

	if err != nil {
		return nil, fmt.Errorf("invalid board configuration %s, %v", path, err)
	}

	return c, nil
}

// Parse decodes a YAML board configuration, unset values are replaced with
// defaults.
func Parse(buf []byte) (c *Config, err error) {
	c = &Config{}

	if err = yaml.Unmarshal(buf, c); err != nil {
		return nil, err
	}

	if err = c.normalize(); err != nil {
		return nil, err
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return
}

func (c *Config) normalize() error {
	if c.ClockHz == 0 {
		c.ClockHz = DefaultClockHz
	}

	for name, cfg := range c.Harts {
		h, err := hart.Lookup(name)

		if err != nil {
			return err
		}

		if cfg != nil {
			c.harts[h] = *cfg
		}
	}

	for i := range c.Sources {
		if c.Sources[i].Hart == "" {
			continue
		}

		h, err := hart.Lookup(c.Sources[i].Hart)

		if err != nil {
			return fmt.Errorf("PLIC source %d, %v", c.Sources[i].ID, err)
		}

		c.Sources[i].target = h
	}

	for h := range c.harts {
		if c.harts[h].TickMs == 0 {
			c.harts[h].TickMs = DefaultTickMs
		}
	}

	return nil
}

// Validate checks the configuration consistency.
func (c *Config) Validate() error {
	for _, s := range c.Sources {
		if s.ID == plic.Invalid || s.ID >= plic.NumSources {
			return fmt.Errorf("invalid PLIC source %d", s.ID)
		}

		if s.Priority > plic.MaxPriority {
			return fmt.Errorf("invalid priority %d for PLIC source %d", s.Priority, s.ID)
		}
	}

	return nil
}

// Hart returns the settings of a hart.
func (c *Config) Hart(h hart.ID) Hart {
	return c.harts[h]
}

// TickRates returns the system tick period of every hart, zero for harts
// with the tick disabled.
func (c *Config) TickRates() (rates [hart.Count]uint64) {
	for h := range c.harts {
		if c.harts[h].TickEnabled() {
			rates[h] = c.harts[h].TickMs
		}
	}

	return
}

// BEU returns the bus error unit masks of every hart.
func (c *Config) BEU() (cfg [hart.Count]beu.Config) {
	for h, s := range c.harts {
		cfg[h] = beu.Config{
			Enable: s.BEU.Enable,
			PLIC:   s.BEU.PLIC,
			Local:  s.BEU.Local,
		}
	}

	return
}
