// internal/status/snapshot.go
package status

import "github.com/tamzrod/servoscan/internal/servo"

// Snapshot represents exactly what the writer is allowed to deliver
// for one device.
type Snapshot struct {
	Target servo.Target

	Health uint16
	Missed uint16
	Bus    uint16

	// Present is true when the device answered the last cycle.
	// Values are meaningful only then.
	Present bool
	Values  map[servo.Register]float64
}

// Loop is the loop-wide snapshot.
type Loop struct {
	Cycles   uint64
	Rate     float64
	Timeouts uint64
	Present  int
	Tracked  int
}
