// internal/status/encode.go
package status

import (
	"math"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Encode converts a Snapshot into a full device block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	copy(regs, EncodeStatus(s))

	if !s.Present {
		return regs
	}

	regs[SlotMode] = intSlot(s.Values, servo.RegMode)
	regs[SlotFault] = intSlot(s.Values, servo.RegFault)

	putFloat(regs, SlotPosition, s.Values, servo.RegPosition)
	putFloat(regs, SlotVelocity, s.Values, servo.RegVelocity)
	putFloat(regs, SlotTorque, s.Values, servo.RegTorque)
	putFloat(regs, SlotVoltage, s.Values, servo.RegVoltage)
	putFloat(regs, SlotTemperature, s.Values, servo.RegTemperature)

	return regs
}

// EncodeStatus converts a Snapshot into the status prefix of its block.
func EncodeStatus(s Snapshot) []uint16 {
	regs := make([]uint16, StatusSlots)
	regs[SlotHealthCode] = s.Health
	regs[SlotMissedCycles] = s.Missed
	regs[SlotBus] = s.Bus
	return regs
}

// EncodeLoop converts loop data into block 0.
func EncodeLoop(l Loop) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	putUint32(regs, SlotCycleCount, l.Cycles)
	regs[SlotRate] = clampUint16(l.Rate * 100)
	putUint32(regs, SlotTimeouts, l.Timeouts)
	regs[SlotPresent] = clampUint16(float64(l.Present))
	regs[SlotTracked] = clampUint16(float64(l.Tracked))

	return regs
}

// ---- helpers ----

// missing or NaN floats encode as NaN
func putFloat(regs []uint16, slot int, values map[servo.Register]float64, reg servo.Register) {
	v, ok := values[reg]
	if !ok {
		v = math.NaN()
	}
	bits := math.Float32bits(float32(v))
	regs[slot] = uint16(bits >> 16)
	regs[slot+1] = uint16(bits)
}

func intSlot(values map[servo.Register]float64, reg servo.Register) uint16 {
	v, ok := values[reg]
	if !ok || math.IsNaN(v) {
		return 0xffff
	}
	return clampUint16(v)
}

// counters wrap at 32 bits
func putUint32(regs []uint16, slot int, v uint64) {
	regs[slot] = uint16(v >> 16)
	regs[slot+1] = uint16(v)
}

func clampUint16(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(math.Round(v))
	}
}
