// internal/moteus/scale.go
package moteus

import (
	"math"

	"github.com/tamzrod/servoscan/internal/servo"
)

// scaling holds the per-unit value of int8, int16 and int32 encodings.
type scaling struct {
	i8, i16, i32 float64
	integer      bool
}

var (
	scaleInt         = scaling{1, 1, 1, true}
	scalePosition    = scaling{0.01, 0.0001, 0.00001, false}
	scaleVelocity    = scaling{0.1, 0.00025, 0.00001, false}
	scaleTorque      = scaling{0.5, 0.01, 0.001, false}
	scaleCurrent     = scaling{1.0, 0.1, 0.001, false}
	scaleVoltage     = scaling{0.5, 0.1, 0.001, false}
	scaleTemperature = scaling{1.0, 0.1, 0.001, false}
)

func scalingFor(reg servo.Register) scaling {
	switch reg {
	case servo.RegPosition:
		return scalePosition
	case servo.RegVelocity:
		return scaleVelocity
	case servo.RegTorque:
		return scaleTorque
	case servo.RegQCurrent, servo.RegDCurrent:
		return scaleCurrent
	case servo.RegVoltage:
		return scaleVoltage
	case servo.RegTemperature:
		return scaleTemperature
	default:
		return scaleInt
	}
}

func scale(reg servo.Register, res Resolution, v rawValue) float64 {
	if res == Float {
		return v.f
	}

	s := scalingFor(reg)
	if v.isNaN && !s.integer {
		return math.NaN()
	}

	switch res {
	case Int8:
		return float64(v.i) * s.i8
	case Int16:
		return float64(v.i) * s.i16
	default:
		return float64(v.i) * s.i32
	}
}
