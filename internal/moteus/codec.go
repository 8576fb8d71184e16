// internal/moteus/codec.go
package moteus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Frame is one CAN-FD frame as seen by a transport.
type Frame struct {
	ArbitrationID uint32
	Data          []byte
}

// ---- ARBITRATION ----

const (
	replyRequested uint32 = 0x8000
	hostSource     uint32 = 0
)

// ArbitrationID builds the id for a frame from the host to dest.
func ArbitrationID(dest servo.ID, reply bool) uint32 {
	id := hostSource<<8 | uint32(dest)
	if reply {
		id |= replyRequested
	}
	return id
}

// ReplySource extracts the responding controller from a reply id.
func ReplySource(arbitrationID uint32) servo.ID {
	return servo.ID((arbitrationID >> 8) & 0x7f)
}

// ReplyDest extracts the addressee of a reply id.
func ReplyDest(arbitrationID uint32) uint8 {
	return uint8(arbitrationID & 0x7f)
}

// ---- SUBFRAME TYPES ----

const (
	subWriteBase byte = 0x00
	subReadBase  byte = 0x10
	subReplyBase byte = 0x20
	subWriteErr  byte = 0x30
	subReadErr   byte = 0x31
	subNop       byte = 0x50
)

// Resolution selects the wire type of a register.
type Resolution uint8

const (
	Ignore Resolution = iota
	Int8
	Int16
	Int32
	Float
)

// ParseResolution accepts float, int32, int16 and int8.
func ParseResolution(name string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float", "f32":
		return Float, nil
	case "int32":
		return Int32, nil
	case "int16":
		return Int16, nil
	case "int8":
		return Int8, nil
	}
	return Ignore, fmt.Errorf("moteus: unknown resolution %q", name)
}

func (r Resolution) typeBits() byte {
	switch r {
	case Int8:
		return 0
	case Int16:
		return 1
	case Int32:
		return 2
	default:
		return 3
	}
}

func resolutionFromBits(b byte) Resolution {
	switch b & 0x03 {
	case 0:
		return Int8
	case 1:
		return Int16
	case 2:
		return Int32
	default:
		return Float
	}
}

func (r Resolution) size() int {
	switch r {
	case Int8:
		return 1
	case Int16:
		return 2
	default:
		return 4
	}
}

// ---- QUERY FORMAT ----

// Field is one register requested by a query.
type Field struct {
	Register   servo.Register
	Resolution Resolution
}

// QueryFormat lists the registers a query asks for.
type QueryFormat []Field

// DefaultQuery matches the controller library default.
func DefaultQuery() QueryFormat {
	return QueryFormat{
		{servo.RegMode, Int8},
		{servo.RegPosition, Float},
		{servo.RegVelocity, Float},
		{servo.RegTorque, Float},
		{servo.RegVoltage, Int8},
		{servo.RegTemperature, Int8},
		{servo.RegFault, Int8},
	}
}

// WithResolution returns a copy with reg switched to res.
func (q QueryFormat) WithResolution(reg servo.Register, res Resolution) QueryFormat {
	out := make(QueryFormat, 0, len(q)+1)
	found := false
	for _, f := range q {
		if f.Register == reg {
			f.Resolution = res
			found = true
		}
		out = append(out, f)
	}
	if !found {
		out = append(out, Field{reg, res})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Register < out[j].Register })
	return out
}

// EncodeQuery builds the read subframes for q.
// Adjacent registers of equal resolution share one subframe.
// Fields must be sorted by register.
func EncodeQuery(q QueryFormat) []byte {
	var out []byte
	for _, g := range q.groups() {
		out = appendHeader(out, subReadBase, g)
	}
	return out
}

// EncodeReply builds the reply a controller would send for q.
// Registers missing from values are encoded as NaN.
func EncodeReply(q QueryFormat, values map[servo.Register]float64) []byte {
	var out []byte
	for _, g := range q.groups() {
		out = appendHeader(out, subReplyBase, g)
		for k := 0; k < g.count; k++ {
			reg := g.start + servo.Register(k)
			v, ok := values[reg]
			if !ok {
				v = math.NaN()
			}
			out = appendValue(out, reg, g.res, v)
		}
	}
	return out
}

type group struct {
	start servo.Register
	res   Resolution
	count int
}

func (q QueryFormat) groups() []group {
	var out []group

	i := 0
	for i < len(q) {
		if q[i].Resolution == Ignore {
			i++
			continue
		}

		start := q[i]
		n := 1
		for i+n < len(q) &&
			q[i+n].Resolution == start.Resolution &&
			q[i+n].Register == start.Register+servo.Register(n) {
			n++
		}

		out = append(out, group{start: start.Register, res: start.Resolution, count: n})
		i += n
	}

	return out
}

func appendHeader(out []byte, base byte, g group) []byte {
	op := base | g.res.typeBits()<<2
	if g.count <= 3 {
		out = append(out, op|byte(g.count))
	} else {
		out = append(out, op)
		out = appendVaruint(out, uint32(g.count))
	}
	return appendVaruint(out, uint32(g.start))
}

// EncodeStop builds the payload that puts a controller into stopped mode.
func EncodeStop() []byte {
	return []byte{subWriteBase | 0x01, byte(servo.RegMode), 0x00}
}

// ---- PADDING ----

var fdLengths = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// Pad extends data with NOP subframes to the next valid CAN-FD length.
func Pad(data []byte) ([]byte, error) {
	for _, l := range fdLengths {
		if l >= len(data) {
			out := make([]byte, l)
			copy(out, data)
			for i := len(data); i < l; i++ {
				out[i] = subNop
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("moteus: payload too long (%d bytes)", len(data))
}

// ---- REPLY DECODING ----

var ErrTruncated = errors.New("moteus: truncated reply")

// DecodeReply parses reply subframes into scaled register values.
// Parsing stops at the first unknown subframe.
func DecodeReply(data []byte) (map[servo.Register]float64, error) {
	values := make(map[servo.Register]float64)

	r := reader{buf: data}
	for r.remaining() > 0 {
		op := r.buf[r.pos]

		switch {
		case op == subNop:
			r.pos++

		case op == subWriteErr || op == subReadErr:
			r.pos++
			if _, err := r.varuint(); err != nil {
				return nil, err
			}
			if _, err := r.varuint(); err != nil {
				return nil, err
			}

		case op&0xf0 == subReplyBase:
			r.pos++
			res := resolutionFromBits(op >> 2)
			count := uint32(op & 0x03)
			if count == 0 {
				c, err := r.varuint()
				if err != nil {
					return nil, err
				}
				count = c
			}
			startReg, err := r.varuint()
			if err != nil {
				return nil, err
			}
			for k := uint32(0); k < count; k++ {
				raw, err := r.value(res)
				if err != nil {
					return nil, err
				}
				reg := servo.Register(startReg + k)
				values[reg] = scale(reg, res, raw)
			}

		default:
			return values, nil
		}
	}

	return values, nil
}

// ---- helpers ----

type rawValue struct {
	i     int64
	f     float64
	isNaN bool
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) varuint() (uint32, error) {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		if r.remaining() < 1 {
			return 0, ErrTruncated
		}
		b := r.buf[r.pos]
		r.pos++
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("moteus: varuint overflow")
}

func (r *reader) value(res Resolution) (rawValue, error) {
	n := res.size()
	if r.remaining() < n {
		return rawValue{}, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n

	switch res {
	case Int8:
		v := int8(b[0])
		return rawValue{i: int64(v), isNaN: v == math.MinInt8}, nil
	case Int16:
		v := int16(binary.LittleEndian.Uint16(b))
		return rawValue{i: int64(v), isNaN: v == math.MinInt16}, nil
	case Int32:
		v := int32(binary.LittleEndian.Uint32(b))
		return rawValue{i: int64(v), isNaN: v == math.MinInt32}, nil
	default:
		return rawValue{f: float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))}, nil
	}
}

func appendValue(dst []byte, reg servo.Register, res Resolution, v float64) []byte {
	if res == Float {
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}

	s := scalingFor(reg)
	unit := s.i32
	switch res {
	case Int8:
		unit = s.i8
	case Int16:
		unit = s.i16
	}

	nan := math.IsNaN(v)
	n := math.Round(v / unit)

	switch res {
	case Int8:
		if nan || n < math.MinInt8+1 || n > math.MaxInt8 {
			return append(dst, byte(0x80))
		}
		return append(dst, byte(int8(n)))
	case Int16:
		if nan || n < math.MinInt16+1 || n > math.MaxInt16 {
			return binary.LittleEndian.AppendUint16(dst, 0x8000)
		}
		return binary.LittleEndian.AppendUint16(dst, uint16(int16(n)))
	default:
		if nan || n < math.MinInt32+1 || n > math.MaxInt32 {
			return binary.LittleEndian.AppendUint32(dst, 0x80000000)
		}
		return binary.LittleEndian.AppendUint32(dst, uint32(int32(n)))
	}
}

func appendVaruint(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
