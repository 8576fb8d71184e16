// internal/poller/builder.go
package poller

import (
	"fmt"

	"github.com/tamzrod/servoscan/internal/config"
	"github.com/tamzrod/servoscan/internal/moteus"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/transport"
	"github.com/tamzrod/servoscan/internal/transport/canbus"
	"github.com/tamzrod/servoscan/internal/transport/fdcanusb"
	tmodbus "github.com/tamzrod/servoscan/internal/transport/modbus"
	"github.com/tamzrod/servoscan/internal/transport/socketcan"
)

// opener opens the transport of one bus.
type opener func(b config.BusConfig) (transport.Transport, error)

// openers is keyed by config transport kind. Tests swap entries.
var openers = map[string]opener{
	config.TransportFDCANUSB:  openFDCANUSB,
	config.TransportSocketCAN: openSocketCAN,
	config.TransportModbus:    openModbus,
}

// Build opens one transport per configured bus and routes between them.
// ONE attempt per bus; a failure closes what was already opened.
// The returned closer releases every bus.
func Build(c *config.Config) (*transport.Router, func() error, error) {
	buses := make(map[servo.Bus]transport.Transport, len(c.Buses))

	closeAll := func() error {
		var last error
		for _, tr := range buses {
			if err := tr.Close(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, b := range c.Buses {
		open, ok := openers[b.Transport]
		if !ok {
			_ = closeAll()
			return nil, nil, fmt.Errorf("poller: bus %d: unknown transport %q", b.ID, b.Transport)
		}

		tr, err := open(b)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("poller: bus %d: %w", b.ID, err)
		}
		buses[servo.Bus(b.ID)] = tr
	}

	r, err := transport.NewRouter(buses, servo.Bus(c.Scan.DefaultBus))
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	return r, r.Close, nil
}

// ---- per-kind openers ----

func openFDCANUSB(b config.BusConfig) (transport.Transport, error) {
	query, err := queryFormat(b)
	if err != nil {
		return nil, err
	}

	conn, err := fdcanusb.Open(b.Device, fdcanusb.PortOptions{
		BaudRate: b.Serial.BaudRate,
		DataBits: b.Serial.DataBits,
		StopBits: b.Serial.StopBits,
		Parity:   b.Serial.Parity,
	})
	if err != nil {
		return nil, err
	}

	return wrapCAN(conn, b, query)
}

func openSocketCAN(b config.BusConfig) (transport.Transport, error) {
	query, err := queryFormat(b)
	if err != nil {
		return nil, err
	}

	conn, err := socketcan.Open(b.Device)
	if err != nil {
		return nil, err
	}

	return wrapCAN(conn, b, query)
}

func wrapCAN(conn canbus.Conn, b config.BusConfig, query moteus.QueryFormat) (transport.Transport, error) {
	tr, err := canbus.New(conn, canbus.Config{Timeout: b.Timeout(), Query: query})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tr, nil
}

func queryFormat(b config.BusConfig) (moteus.QueryFormat, error) {
	q := moteus.DefaultQuery()
	if b.Query.PositionResolution == "" {
		return q, nil
	}
	res, err := moteus.ParseResolution(b.Query.PositionResolution)
	if err != nil {
		return nil, err
	}
	return q.WithResolution(servo.RegPosition, res), nil
}

func openModbus(b config.BusConfig) (transport.Transport, error) {
	layout, err := modbusLayout(b)
	if err != nil {
		return nil, err
	}

	return tmodbus.New(tmodbus.Config{
		Endpoint: b.Device,
		Timeout:  b.Timeout(),
		Layout:   layout,
		BaudRate: b.Serial.BaudRate,
		DataBits: b.Serial.DataBits,
		StopBits: b.Serial.StopBits,
		Parity:   b.Serial.Parity,
	})
}

func modbusLayout(b config.BusConfig) (tmodbus.Layout, error) {
	layout := tmodbus.DefaultLayout()

	m := b.Modbus
	if m == nil {
		return layout, nil
	}
	if len(m.Registers) > 0 {
		layout.Floats = make(map[servo.Register]uint16, len(m.Registers))
		for name, addr := range m.Registers {
			reg, err := servo.ParseRegister(name)
			if err != nil {
				return layout, err
			}
			layout.Floats[reg] = addr
		}
	}
	if m.ModeAddress != nil {
		layout.ModeAddress = *m.ModeAddress
	}
	layout.LowWordFirst = m.WordOrder == config.WordOrderLowFirst
	return layout, nil
}
