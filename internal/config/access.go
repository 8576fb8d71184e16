// internal/config/access.go
package config

import (
	"time"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Accessors assume a validated, normalized config.

// Assignment returns the bus assignment, or nil when no bus lists servos.
func (c *Config) Assignment() servo.BusMap {
	var m servo.BusMap
	for _, b := range c.Buses {
		if len(b.Servos) == 0 {
			continue
		}
		if m == nil {
			m = servo.BusMap{}
		}
		m[servo.Bus(b.ID)] = toIDs(b.Servos)
	}
	return m
}

// StaticServos returns the poll set configured up front, or nil.
func (c *Config) StaticServos() servo.BusMap {
	if len(c.Poll.Servos) == 0 {
		return nil
	}
	m := servo.BusMap{}
	for bus, ids := range c.Poll.Servos {
		m[servo.Bus(bus)] = toIDs(ids)
	}
	return m
}

func (c *Config) ScanRange() servo.Range {
	return servo.Range{First: servo.ID(c.Scan.First), Last: servo.ID(c.Scan.Last)}
}

func (c *Config) ScanRegister() servo.Register {
	r, err := servo.ParseRegister(c.Scan.Register)
	if err != nil {
		return servo.RegPosition
	}
	return r
}

func (c *Config) Interval() time.Duration {
	if c.Poll.IntervalMs == nil {
		return DefaultIntervalMs * time.Millisecond
	}
	return time.Duration(*c.Poll.IntervalMs) * time.Millisecond
}

func (b BusConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

func toIDs(in []int) []servo.ID {
	out := make([]servo.ID, 0, len(in))
	for _, v := range in {
		out = append(out, servo.ID(v))
	}
	return out
}
