// internal/config/config.go
package config

type Config struct {
	Buses  []BusConfig   `yaml:"buses"`
	Scan   ScanConfig    `yaml:"scan"`
	Poll   PollConfig    `yaml:"poll"`
	Mirror *MirrorConfig `yaml:"mirror"`
	Record *RecordConfig `yaml:"record"`
	Live   *LiveConfig   `yaml:"live"`
}

// ---- BUS ----

type BusConfig struct {
	ID        int    `yaml:"id"`
	Transport string `yaml:"transport"` // fdcanusb | socketcan | modbus
	Device    string `yaml:"device"`    // serial path, CAN interface, or modbus endpoint
	TimeoutMs int    `yaml:"timeout_ms"`

	// Bus assignment (optional). Empty on every bus => flat scan range.
	Servos []int `yaml:"servos"`

	Serial SerialConfig        `yaml:"serial"`
	Query  QueryConfig         `yaml:"query"`
	Modbus *ModbusLayoutConfig `yaml:"modbus"`
}

const (
	TransportFDCANUSB  = "fdcanusb"
	TransportSocketCAN = "socketcan"
	TransportModbus    = "modbus"
)

type SerialConfig struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// QueryConfig tunes the CAN query frame.
type QueryConfig struct {
	PositionResolution string `yaml:"position_resolution"` // float | int32 | int16 | int8
}

// ModbusLayoutConfig places telemetry in drive holding registers.
type ModbusLayoutConfig struct {
	Registers   map[string]uint16 `yaml:"registers"`    // register name -> address of a float32
	ModeAddress *uint16           `yaml:"mode_address"` // nil keeps the drive default
	WordOrder   string            `yaml:"word_order"`   // high_first | low_first
}

// ---- SCAN ----

type ScanConfig struct {
	First      int    `yaml:"first"`
	Last       int    `yaml:"last"`
	DefaultBus int    `yaml:"default_bus"`
	Register   string `yaml:"register"` // register that marks a controller live
}

// ---- POLL ----

type PollConfig struct {
	// nil => default; 0 => no delay between cycles
	IntervalMs  *int          `yaml:"interval_ms"`
	StopOnStart bool          `yaml:"stop_on_start"`
	Servos      map[int][]int `yaml:"servos"` // static set; skips discovery
}

// ---- MIRROR ----

type MirrorConfig struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// ---- RECORD ----

// RecordConfig stores every cycle in a SQLite file.
type RecordConfig struct {
	Path string `yaml:"path"`
}

// ---- LIVE ----

// LiveConfig serves the latest cycle over HTTP and a websocket.
type LiveConfig struct {
	Listen string `yaml:"listen"`
}
