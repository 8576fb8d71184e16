// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/servoscan/internal/servo"
)

// maxFloatAddress is the last holding register a float32 can start at.
const maxFloatAddress = 65534

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// BUSES
	// ------------------------------------------------------------

	if len(cfg.Buses) == 0 {
		return errors.New("config: at least one bus is required")
	}

	buses := make(map[int]struct{}, len(cfg.Buses))

	for _, b := range cfg.Buses {
		if b.ID <= 0 {
			return fmt.Errorf("bus %d: id must be > 0", b.ID)
		}
		if _, dup := buses[b.ID]; dup {
			return fmt.Errorf("bus %d: defined twice", b.ID)
		}
		buses[b.ID] = struct{}{}

		switch b.Transport {
		case TransportFDCANUSB, TransportSocketCAN, TransportModbus:
		default:
			return fmt.Errorf(
				"bus %d: unknown transport %q (want %s, %s or %s)",
				b.ID, b.Transport, TransportFDCANUSB, TransportSocketCAN, TransportModbus,
			)
		}

		if strings.TrimSpace(b.Device) == "" {
			return fmt.Errorf("bus %d: device is required", b.ID)
		}
		if b.TimeoutMs < 0 {
			return fmt.Errorf("bus %d: timeout_ms must be >= 0", b.ID)
		}

		if err := validateIDs(b.ID, b.Servos); err != nil {
			return err
		}

		if b.Query.PositionResolution != "" {
			if b.Transport == TransportModbus {
				return fmt.Errorf("bus %d: query settings apply to CAN transports only", b.ID)
			}
			if _, ok := resolutions[strings.ToLower(b.Query.PositionResolution)]; !ok {
				return fmt.Errorf("bus %d: unknown position_resolution %q", b.ID, b.Query.PositionResolution)
			}
		}

		if b.Modbus != nil {
			if b.Transport != TransportModbus {
				return fmt.Errorf("bus %d: modbus layout set on a %s bus", b.ID, b.Transport)
			}
			for name, addr := range b.Modbus.Registers {
				if _, err := servo.ParseRegister(name); err != nil {
					return fmt.Errorf("bus %d: %w", b.ID, err)
				}
				if addr > maxFloatAddress {
					return fmt.Errorf("bus %d: register %s at %d runs past the register space", b.ID, name, addr)
				}
			}
			switch b.Modbus.WordOrder {
			case "", WordOrderHighFirst, WordOrderLowFirst:
			default:
				return fmt.Errorf("bus %d: unknown word_order %q", b.ID, b.Modbus.WordOrder)
			}
		}
	}

	// ------------------------------------------------------------
	// SCAN
	// ------------------------------------------------------------

	s := cfg.Scan
	for _, v := range []int{s.First, s.Last} {
		if v != 0 && (v < int(servo.MinID) || v > int(servo.MaxID)) {
			return fmt.Errorf("scan: id %d out of range %d-%d", v, servo.MinID, servo.MaxID)
		}
	}
	if s.First != 0 && s.Last != 0 && s.First > s.Last {
		return fmt.Errorf("scan: first %d is after last %d", s.First, s.Last)
	}
	if s.DefaultBus != 0 {
		if _, ok := buses[s.DefaultBus]; !ok {
			return fmt.Errorf("scan: default_bus %d is not configured", s.DefaultBus)
		}
	}
	if s.Register != "" {
		if _, err := servo.ParseRegister(s.Register); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs != nil && *cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll: interval_ms must be >= 0")
	}
	for bus, ids := range cfg.Poll.Servos {
		if _, ok := buses[bus]; !ok {
			return fmt.Errorf("poll: servos listed for unconfigured bus %d", bus)
		}
		if err := validateIDs(bus, ids); err != nil {
			return fmt.Errorf("poll: %w", err)
		}
	}

	// ------------------------------------------------------------
	// MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.Mirror; m != nil {
		if strings.TrimSpace(m.Endpoint) == "" {
			return errors.New("mirror: endpoint is required")
		}
		if m.TimeoutMs < 0 {
			return errors.New("mirror: timeout_ms must be >= 0")
		}
	}

	// ------------------------------------------------------------
	// RECORD / LIVE (OPT-IN)
	// ------------------------------------------------------------

	if r := cfg.Record; r != nil && strings.TrimSpace(r.Path) == "" {
		return errors.New("record: path is required")
	}
	if l := cfg.Live; l != nil && strings.TrimSpace(l.Listen) == "" {
		return errors.New("live: listen is required")
	}

	return nil
}

func validateIDs(bus int, ids []int) error {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id < int(servo.MinID) || id > int(servo.MaxID) {
			return fmt.Errorf("bus %d: servo id %d out of range %d-%d", bus, id, servo.MinID, servo.MaxID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("bus %d: servo id %d listed twice", bus, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
