// internal/transport/socketcan/socketcan_linux.go
package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tamzrod/servoscan/internal/moteus"
	"github.com/tamzrod/servoscan/internal/transport/canbus"
)

const (
	canMTU   = 16
	canfdMTU = 72
	canfdBRS = 0x01
)

// Conn is a raw CAN-FD socket bound to one interface.
type Conn struct {
	fd     int
	ifname string
}

var _ canbus.Conn = (*Conn)(nil)

// Open binds a raw CAN socket with FD frames enabled.
func Open(ifname string) (*Conn, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("socketcan: interface %s: %w", ifname, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: enable fd frames: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %s: %w", ifname, err)
	}

	return &Conn{fd: fd, ifname: ifname}, nil
}

func (c *Conn) WriteFrame(f moteus.Frame) error {
	raw, err := encodeFrame(f)
	if err != nil {
		return err
	}
	n, err := unix.Write(c.fd, raw)
	if err != nil {
		return fmt.Errorf("socketcan: write %s: %w", c.ifname, err)
	}
	if n != len(raw) {
		return fmt.Errorf("socketcan: short write (%d of %d bytes)", n, len(raw))
	}
	return nil
}

func (c *Conn) ReadFrame(timeout time.Duration) (moteus.Frame, error) {
	// a zero SO_RCVTIMEO would block forever
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return moteus.Frame{}, fmt.Errorf("socketcan: set timeout: %w", err)
	}

	var buf [canfdMTU]byte
	n, err := unix.Read(c.fd, buf[:])
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return moteus.Frame{}, canbus.ErrTimeout
	}
	if err != nil {
		return moteus.Frame{}, fmt.Errorf("socketcan: read %s: %w", c.ifname, err)
	}

	return decodeFrame(buf[:n])
}

func (c *Conn) Flush() error {
	var buf [canfdMTU]byte
	for {
		_, _, err := unix.Recvfrom(c.fd, buf[:], unix.MSG_DONTWAIT)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("socketcan: flush %s: %w", c.ifname, err)
		}
	}
}

func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

// ---- frame layout (struct canfd_frame) ----
//
//	0-3  can_id (host order, EFF flag for 29-bit ids)
//	4    len
//	5    flags
//	6-7  reserved
//	8-   data

func encodeFrame(f moteus.Frame) ([]byte, error) {
	if len(f.Data) > 64 {
		return nil, fmt.Errorf("socketcan: frame data too long (%d bytes)", len(f.Data))
	}

	raw := make([]byte, canfdMTU)

	id := f.ArbitrationID
	if id != id&unix.CAN_SFF_MASK {
		id = (id & unix.CAN_EFF_MASK) | unix.CAN_EFF_FLAG
	}
	binary.LittleEndian.PutUint32(raw[0:4], id)

	raw[4] = byte(len(f.Data))
	raw[5] = canfdBRS
	copy(raw[8:], f.Data)

	return raw, nil
}

func decodeFrame(raw []byte) (moteus.Frame, error) {
	if len(raw) != canMTU && len(raw) != canfdMTU {
		return moteus.Frame{}, fmt.Errorf("socketcan: unexpected frame size %d", len(raw))
	}

	oid := binary.LittleEndian.Uint32(raw[0:4])

	var f moteus.Frame
	if oid&unix.CAN_EFF_FLAG != 0 {
		f.ArbitrationID = oid & unix.CAN_EFF_MASK
	} else {
		f.ArbitrationID = oid & unix.CAN_SFF_MASK
	}

	n := int(raw[4])
	if 8+n > len(raw) {
		return moteus.Frame{}, fmt.Errorf("socketcan: length %d exceeds frame", n)
	}
	f.Data = append([]byte(nil), raw[8:8+n]...)

	return f, nil
}
