// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
buses:
  - id: 1
    transport: fdcanusb
    device: /dev/fdcanusb
    servos: [11, 12]
  - id: 2
    transport: socketcan
    device: can0
    query:
      position_resolution: int16
scan:
  register: position
poll:
  interval_ms: 10
  stop_on_start: true
mirror:
  endpoint: 127.0.0.1:1502
  unit_id: 1
record:
  path: /var/lib/servoscan/telemetry.db
live:
  listen: 127.0.0.1:8080
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servoscan.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	Normalize(cfg)

	if len(cfg.Buses) != 2 || cfg.Buses[1].Device != "can0" {
		t.Fatalf("unexpected buses %+v", cfg.Buses)
	}
	if cfg.Interval().Milliseconds() != 10 || !cfg.Poll.StopOnStart {
		t.Fatalf("unexpected poll %+v", cfg.Poll)
	}
	if cfg.Mirror == nil || cfg.Mirror.UnitID != 1 {
		t.Fatalf("unexpected mirror %+v", cfg.Mirror)
	}
	if cfg.Record == nil || cfg.Live == nil || cfg.Live.Listen != "127.0.0.1:8080" {
		t.Fatalf("unexpected record/live %+v %+v", cfg.Record, cfg.Live)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	if _, err := Parse([]byte("buses: []\nbogus: 1\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestParse_ModeAddressZero(t *testing.T) {
	raw := "buses:\n" +
		"  - id: 1\n" +
		"    transport: modbus\n" +
		"    device: 10.0.0.5:502\n" +
		"    modbus:\n" +
		"      registers: {position: 65534}\n" +
		"      mode_address: 0\n"

	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
	m := cfg.Buses[0].Modbus
	if m.ModeAddress == nil || *m.ModeAddress != 0 {
		t.Fatalf("mode_address 0 lost: %v", m.ModeAddress)
	}
}
