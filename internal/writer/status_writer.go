// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/servoscan/internal/status"
)

// deviceStatusWriter delivers one device block.
// A present device gets its full block every cycle.
// An absent device gets only changed status slots.
type deviceStatusWriter struct {
	cli    endpointClient
	unitID uint8
	base   uint16

	needFull bool
	last     status.Snapshot
}

func newDeviceStatusWriter(cli endpointClient, unitID uint8, base uint16) *deviceStatusWriter {
	return &deviceStatusWriter{
		cli:      cli,
		unitID:   unitID,
		base:     base,
		needFull: true, // full re-assert on first write
	}
}

// WriteStatus delivers a device snapshot into mirror memory.
// On any write failure, the next call re-asserts the status prefix.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.cli == nil {
		return errors.New("status writer: disabled")
	}

	// ------------------------------------------------------------
	// Present: full block (status + telemetry)
	// ------------------------------------------------------------
	if s.Present {
		if err := sw.cli.WriteRegisters(sw.unitID, sw.base, status.Encode(s)); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = s
		return nil
	}

	// ------------------------------------------------------------
	// Absent: status prefix re-assert
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.unitID, sw.base, status.EncodeStatus(s)); err != nil {
			return fmt.Errorf("status writer: status write failed: %w", err)
		}
		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	// Slot 0: health_code
	if sw.last.Health != s.Health {
		if err := sw.writeSlot(status.SlotHealthCode, s.Health); err != nil {
			errs = append(errs, fmt.Sprintf("slot0 health write failed: %v", err))
		} else {
			sw.last.Health = s.Health
		}
	}

	// Slot 1: missed_cycles
	if sw.last.Missed != s.Missed {
		if err := sw.writeSlot(status.SlotMissedCycles, s.Missed); err != nil {
			errs = append(errs, fmt.Sprintf("slot1 missed write failed: %v", err))
		} else {
			sw.last.Missed = s.Missed
		}
	}

	// Slot 2: bus
	if sw.last.Bus != s.Bus {
		if err := sw.writeSlot(status.SlotBus, s.Bus); err != nil {
			errs = append(errs, fmt.Sprintf("slot2 bus write failed: %v", err))
		} else {
			sw.last.Bus = s.Bus
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) writeSlot(slot int, v uint16) error {
	return sw.cli.WriteRegisters(sw.unitID, sw.base+uint16(slot), []uint16{v})
}
