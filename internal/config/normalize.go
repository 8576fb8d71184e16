// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/servoscan/internal/servo"
)

const (
	DefaultIntervalMs      = 20
	DefaultCANTimeoutMs    = 20
	DefaultModbusTimeoutMs = 100
	DefaultMirrorTimeoutMs = 1000

	WordOrderHighFirst = "high_first"
	WordOrderLowFirst  = "low_first"
)

var resolutions = map[string]struct{}{
	"float": {}, "int32": {}, "int16": {}, "int8": {},
}

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for i := range cfg.Buses {
		b := &cfg.Buses[i]

		b.Device = strings.TrimSpace(b.Device)
		b.Query.PositionResolution = strings.ToLower(b.Query.PositionResolution)

		if b.TimeoutMs == 0 {
			if b.Transport == TransportModbus {
				b.TimeoutMs = DefaultModbusTimeoutMs
			} else {
				b.TimeoutMs = DefaultCANTimeoutMs
			}
		}
	}

	if cfg.Scan.First == 0 {
		cfg.Scan.First = int(servo.MinID)
	}
	if cfg.Scan.Last == 0 {
		cfg.Scan.Last = int(servo.MaxID)
	}
	if cfg.Scan.DefaultBus == 0 && len(cfg.Buses) > 0 {
		cfg.Scan.DefaultBus = cfg.Buses[0].ID
	}
	if cfg.Scan.Register == "" {
		cfg.Scan.Register = servo.RegPosition.String()
	}

	if cfg.Poll.IntervalMs == nil {
		v := DefaultIntervalMs
		cfg.Poll.IntervalMs = &v
	}

	if cfg.Mirror != nil && cfg.Mirror.TimeoutMs == 0 {
		cfg.Mirror.TimeoutMs = DefaultMirrorTimeoutMs
	}
}
