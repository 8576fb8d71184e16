// internal/servo/register.go
package servo

import (
	"fmt"
	"strings"
)

// Register is a telemetry register number (moteus numbering).
type Register uint16

const (
	RegMode        Register = 0x000
	RegPosition    Register = 0x001
	RegVelocity    Register = 0x002
	RegTorque      Register = 0x003
	RegQCurrent    Register = 0x004
	RegDCurrent    Register = 0x005
	RegVoltage     Register = 0x00d
	RegTemperature Register = 0x00e
	RegFault       Register = 0x00f
)

var registerNames = map[Register]string{
	RegMode:        "mode",
	RegPosition:    "position",
	RegVelocity:    "velocity",
	RegTorque:      "torque",
	RegQCurrent:    "q_current",
	RegDCurrent:    "d_current",
	RegVoltage:     "voltage",
	RegTemperature: "temperature",
	RegFault:       "fault",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("reg(0x%03x)", uint16(r))
}

// ParseRegister resolves a register by name.
func ParseRegister(name string) (Register, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for r, rn := range registerNames {
		if rn == n {
			return r, nil
		}
	}
	return 0, fmt.Errorf("servo: unknown register %q", name)
}
