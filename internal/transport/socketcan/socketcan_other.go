//go:build !linux

// internal/transport/socketcan/socketcan_other.go
package socketcan

import (
	"errors"
	"time"

	"github.com/tamzrod/servoscan/internal/moteus"
)

var errUnsupported = errors.New("socketcan: only supported on linux")

// Conn is unavailable outside linux.
type Conn struct{}

func Open(ifname string) (*Conn, error) { return nil, errUnsupported }

func (c *Conn) WriteFrame(moteus.Frame) error { return errUnsupported }

func (c *Conn) ReadFrame(time.Duration) (moteus.Frame, error) {
	return moteus.Frame{}, errUnsupported
}

func (c *Conn) Flush() error { return errUnsupported }

func (c *Conn) Close() error { return nil }
