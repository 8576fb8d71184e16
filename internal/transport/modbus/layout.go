// internal/transport/modbus/layout.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Layout places telemetry registers in drive holding-register memory.
// Every value is a float32 spanning two registers.
type Layout struct {
	Floats      map[servo.Register]uint16
	ModeAddress uint16
	// LowWordFirst swaps the two registers of each float.
	LowWordFirst bool
}

// DefaultLayout: position, velocity, torque at 0, 2, 4; mode at 100.
func DefaultLayout() Layout {
	return Layout{
		Floats: map[servo.Register]uint16{
			servo.RegPosition: 0,
			servo.RegVelocity: 2,
			servo.RegTorque:   4,
		},
		ModeAddress: 100,
	}
}

// MaxFloatAddress is the last address a two-register float can start at.
const MaxFloatAddress = math.MaxUint16 - 1

// Validate rejects overlapping floats and spans over 125 registers.
func (l Layout) Validate() error {
	if len(l.Floats) == 0 {
		return errors.New("modbus layout: no registers")
	}

	addrs := l.sortedAddrs()
	if last := addrs[len(addrs)-1]; last > MaxFloatAddress {
		return fmt.Errorf("modbus layout: float at %d runs past the register space", last)
	}
	for i := 1; i < len(addrs); i++ {
		if int(addrs[i]) < int(addrs[i-1])+2 {
			return fmt.Errorf("modbus layout: registers at %d and %d overlap", addrs[i-1], addrs[i])
		}
	}

	if _, qty := l.span(); qty > 125 {
		return fmt.Errorf("modbus layout: span of %d registers exceeds one read", qty)
	}
	return nil
}

func (l Layout) sortedAddrs() []uint16 {
	out := make([]uint16, 0, len(l.Floats))
	for _, a := range l.Floats {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// span is the single read covering every float.
func (l Layout) span() (start, qty uint16) {
	addrs := l.sortedAddrs()
	if len(addrs) == 0 {
		return 0, 0
	}
	start = addrs[0]
	end := int(addrs[len(addrs)-1]) + 2
	if end-int(start) > math.MaxUint16 {
		return start, math.MaxUint16
	}
	return start, uint16(end - int(start))
}

// decode unpacks a big-endian register block read from span().
func (l Layout) decode(raw []byte) (map[servo.Register]float64, error) {
	start, qty := l.span()
	if len(raw) < int(qty)*2 {
		return nil, fmt.Errorf("modbus layout: short read (%d of %d bytes)", len(raw), int(qty)*2)
	}

	out := make(map[servo.Register]float64, len(l.Floats))
	for reg, addr := range l.Floats {
		off := int(addr-start) * 2
		hi := binary.BigEndian.Uint16(raw[off : off+2])
		lo := binary.BigEndian.Uint16(raw[off+2 : off+4])
		if l.LowWordFirst {
			hi, lo = lo, hi
		}
		out[reg] = float64(math.Float32frombits(uint32(hi)<<16 | uint32(lo)))
	}
	return out, nil
}
