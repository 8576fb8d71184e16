// internal/transport/fdcanusb/conn.go
package fdcanusb

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/moteus"
	"github.com/tamzrod/servoscan/internal/transport/canbus"
)

var ErrClosed = errors.New("fdcanusb: closed")

// Conn implements canbus.Conn over the adapter's text protocol:
//
//	host:    can send <hexid> <hexdata>
//	adapter: OK | ERR <reason> | rcv <hexid> <hexdata> [flags]
type Conn struct {
	port Port

	writeMu sync.Mutex
	frames  chan moteus.Frame

	dead    chan struct{}
	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

var _ canbus.Conn = (*Conn)(nil)

// NewConn wraps an already opened port.
func NewConn(port Port) *Conn {
	c := &Conn{
		port:   port,
		frames: make(chan moteus.Frame, 256),
		dead:   make(chan struct{}),
	}
	go c.monitor()
	return c
}

func (c *Conn) WriteFrame(f moteus.Frame) error {
	line := formatSend(f)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.dead:
		return c.err()
	default:
	}

	n, err := c.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return fmt.Errorf("fdcanusb: short write (%d of %d bytes)", n, len(line))
	}
	return nil
}

func (c *Conn) ReadFrame(timeout time.Duration) (moteus.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-c.frames:
		return f, nil
	case <-c.dead:
		// drain what arrived before the reader stopped
		select {
		case f := <-c.frames:
			return f, nil
		default:
		}
		return moteus.Frame{}, c.err()
	case <-timer.C:
		return moteus.Frame{}, canbus.ErrTimeout
	}
}

func (c *Conn) Flush() error {
	for {
		select {
		case <-c.frames:
		default:
			return nil
		}
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setErr(ErrClosed)
		err = c.port.Close()
	})
	return err
}

// monitor reads adapter lines until the port fails or is closed.
func (c *Conn) monitor() {
	defer close(c.dead)

	r := bufio.NewReader(c.port)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			c.handleLine(strings.TrimSpace(line))
		}
		if err != nil {
			c.setErr(fmt.Errorf("fdcanusb: read: %w", err))
			return
		}
	}
}

func (c *Conn) handleLine(line string) {
	switch {
	case line == "" || line == "OK":
	case strings.HasPrefix(line, "rcv "):
		f, err := parseRcv(line)
		if err != nil {
			monitoring.Logf("fdcanusb: %v", err)
			return
		}
		select {
		case c.frames <- f:
		default:
			monitoring.Logf("fdcanusb: receive buffer full, dropping frame id=%x", f.ArbitrationID)
		}
	case strings.HasPrefix(line, "ERR"):
		monitoring.Logf("fdcanusb: adapter error: %s", line)
	}
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil {
		c.readErr = err
	}
}

func (c *Conn) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil {
		return ErrClosed
	}
	return c.readErr
}

// ---- line codec ----

func formatSend(f moteus.Frame) string {
	return fmt.Sprintf("can send %04x %s\n", f.ArbitrationID, hex.EncodeToString(f.Data))
}

func parseRcv(line string) (moteus.Frame, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return moteus.Frame{}, fmt.Errorf("short rcv line %q", line)
	}

	id, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return moteus.Frame{}, fmt.Errorf("bad rcv id %q: %w", fields[1], err)
	}

	data, err := hex.DecodeString(fields[2])
	if err != nil {
		return moteus.Frame{}, fmt.Errorf("bad rcv data %q: %w", fields[2], err)
	}

	return moteus.Frame{ArbitrationID: uint32(id), Data: data}, nil
}
