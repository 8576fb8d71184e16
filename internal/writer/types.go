// internal/writer/types.go
package writer

import (
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
)

// Plan is the fully-built mirror plan.
type Plan struct {
	UnitID      uint8
	BaseAddress uint16

	// Blocks maps each device to its block index. Block 0 is loop data.
	Blocks map[servo.Target]uint16
}

// Writer mirrors tracker state into a Modbus memory.
type Writer interface {
	Write(t *status.Tracker) error
}
