// internal/transport/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/servo"
)

// handler is the part of the goburrow handlers the transport drives.
type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Config is minimal transport config.
type Config struct {
	// Endpoint is "host:port", "tcp://host:port" or "rtu:///dev/ttyUSB0".
	Endpoint string
	Timeout  time.Duration
	Layout   Layout

	// RTU line settings; zero values mean 8N1.
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Transport queries drives that expose telemetry as holding registers.
// It serializes requests because it mutates SlaveId per device.
type Transport struct {
	mu       sync.Mutex
	handler  handler
	client   modbus.Client
	setSlave func(id byte)
	layout   Layout
}

// New connects to the endpoint.
func New(cfg Config) (*Transport, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus transport: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}

	layout := cfg.Layout
	if len(layout.Floats) == 0 {
		layout = DefaultLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	var (
		h        handler
		setSlave func(byte)
	)

	switch {
	case strings.HasPrefix(cfg.Endpoint, "rtu://"):
		rh := modbus.NewRTUClientHandler(strings.TrimPrefix(cfg.Endpoint, "rtu://"))
		rh.Timeout = cfg.Timeout
		if err := configureRTU(rh, cfg); err != nil {
			return nil, err
		}
		h = rh
		setSlave = func(id byte) { rh.SlaveId = id }

	default:
		th := modbus.NewTCPClientHandler(strings.TrimPrefix(cfg.Endpoint, "tcp://"))
		th.Timeout = cfg.Timeout
		h = th
		setSlave = func(id byte) { th.SlaveId = id }
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus transport: connect %s: %w", cfg.Endpoint, err)
	}

	return &Transport{
		handler:  h,
		client:   modbus.NewClient(h),
		setSlave: setSlave,
		layout:   layout,
	}, nil
}

// configureRTU applies the line settings, defaulting to 8N1.
func configureRTU(rh *modbus.RTUClientHandler, cfg Config) error {
	if cfg.BaudRate > 0 {
		rh.BaudRate = cfg.BaudRate
	}

	rh.DataBits = 8
	if cfg.DataBits != 0 {
		if cfg.DataBits < 5 || cfg.DataBits > 8 {
			return fmt.Errorf("modbus transport: invalid data bits %d", cfg.DataBits)
		}
		rh.DataBits = cfg.DataBits
	}

	rh.StopBits = 1
	if cfg.StopBits != 0 {
		if cfg.StopBits != 1 && cfg.StopBits != 2 {
			return fmt.Errorf("modbus transport: invalid stop bits %d", cfg.StopBits)
		}
		rh.StopBits = cfg.StopBits
	}

	rh.Parity = "N"
	if p := strings.ToUpper(strings.TrimSpace(cfg.Parity)); p != "" {
		switch p {
		case "N", "E", "O":
			rh.Parity = p
		default:
			return fmt.Errorf("modbus transport: unsupported parity %q", cfg.Parity)
		}
	}
	return nil
}

func newWithClient(client modbus.Client, setSlave func(byte), layout Layout) *Transport {
	return &Transport{client: client, setSlave: setSlave, layout: layout}
}

// Cycle performs one exchange per request, in order.
// A device that fails its exchange is absent from the results.
func (t *Transport) Cycle(ctx context.Context, reqs []servo.Request) ([]servo.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []servo.Result

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.setSlave(byte(req.ID))

		switch req.Kind {
		case servo.KindQuery:
			start, qty := t.layout.span()
			raw, err := t.client.ReadHoldingRegisters(start, qty)
			if err != nil {
				continue
			}
			values, err := t.layout.decode(raw)
			if err != nil {
				continue
			}
			out = append(out, servo.Result{ID: req.ID, Bus: req.Bus, OK: true, Values: values})

		case servo.KindStop:
			if _, err := t.client.WriteSingleRegister(t.layout.ModeAddress, 0); err != nil {
				monitoring.Logf("modbus transport: stop id=%d: %v", req.ID, err)
			}
		}
	}

	return out, nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handler == nil {
		return nil
	}
	return t.handler.Close()
}
