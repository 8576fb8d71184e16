// internal/transport/modbus/client_test.go
package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/servo"
)

// fakeClient embeds the interface so only used calls need bodies.
type fakeClient struct {
	modbus.Client

	slave  *byte
	drives map[byte][]byte // slave -> register block

	reads   []byte
	writes  []writeCall
	stopErr error
}

type writeCall struct {
	slave byte
	addr  uint16
	value uint16
}

func (f *fakeClient) ReadHoldingRegisters(addr, qty uint16) ([]byte, error) {
	f.reads = append(f.reads, *f.slave)
	block, ok := f.drives[*f.slave]
	if !ok {
		return nil, errors.New("timeout")
	}
	return block[:int(qty)*2], nil
}

func (f *fakeClient) WriteSingleRegister(addr, value uint16) ([]byte, error) {
	f.writes = append(f.writes, writeCall{slave: *f.slave, addr: addr, value: value})
	return nil, f.stopErr
}

func floatBlock(vals ...float32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.BigEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func newFake(drives map[byte][]byte) (*fakeClient, *Transport) {
	var slave byte
	f := &fakeClient{slave: &slave, drives: drives}
	tr := newWithClient(f, func(id byte) { slave = id }, DefaultLayout())
	return f, tr
}

func TestCycle_QueriesEachDrive(t *testing.T) {
	f, tr := newFake(map[byte][]byte{
		3: floatBlock(1.5, -2, 0.25),
	})

	res, err := tr.Cycle(context.Background(), []servo.Request{
		{ID: 3, Bus: 1},
		{ID: 4, Bus: 1},
	})
	if err != nil {
		t.Fatalf("Cycle err=%v", err)
	}

	if len(res) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res))
	}
	if res[0].ID != 3 || res[0].Bus != 1 {
		t.Fatalf("unexpected result %+v", res[0])
	}
	if got := res[0].Values[servo.RegPosition]; got != 1.5 {
		t.Fatalf("position: got=%v want=1.5", got)
	}
	if got := res[0].Values[servo.RegTorque]; got != 0.25 {
		t.Fatalf("torque: got=%v want=0.25", got)
	}

	if len(f.reads) != 2 || f.reads[0] != 3 || f.reads[1] != 4 {
		t.Fatalf("unexpected read order %v", f.reads)
	}
}

func TestCycle_StopWritesMode(t *testing.T) {
	f, tr := newFake(nil)

	res, err := tr.Cycle(context.Background(), []servo.Request{{ID: 7, Kind: servo.KindStop}})
	if err != nil {
		t.Fatalf("Cycle err=%v", err)
	}
	if len(res) != 0 {
		t.Fatalf("stop must not produce results, got %d", len(res))
	}
	if len(f.writes) != 1 || f.writes[0] != (writeCall{slave: 7, addr: 100, value: 0}) {
		t.Fatalf("unexpected writes %+v", f.writes)
	}
}

func TestCycle_Cancelled(t *testing.T) {
	_, tr := newFake(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Cycle(ctx, []servo.Request{{ID: 1}}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestLayout_LowWordFirst(t *testing.T) {
	l := Layout{Floats: map[servo.Register]uint16{servo.RegPosition: 10}, LowWordFirst: true}

	bits := math.Float32bits(3.75)
	raw := make([]byte, 4)
	binary.BigEndian.PutUint16(raw[0:2], uint16(bits))
	binary.BigEndian.PutUint16(raw[2:4], uint16(bits>>16))

	vals, err := l.decode(raw)
	if err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if vals[servo.RegPosition] != 3.75 {
		t.Fatalf("got=%v want=3.75", vals[servo.RegPosition])
	}

	if _, err := l.decode(raw[:2]); err == nil {
		t.Fatalf("expected short read error")
	}
}

func TestLayout_Validate(t *testing.T) {
	if err := DefaultLayout().Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}

	overlap := Layout{Floats: map[servo.Register]uint16{
		servo.RegPosition: 0,
		servo.RegVelocity: 1,
	}}
	if err := overlap.Validate(); err == nil {
		t.Fatalf("expected overlap error")
	}

	wide := Layout{Floats: map[servo.Register]uint16{
		servo.RegPosition: 0,
		servo.RegVelocity: 200,
	}}
	if err := wide.Validate(); err == nil {
		t.Fatalf("expected span error")
	}

	if err := (Layout{}).Validate(); err == nil {
		t.Fatalf("expected empty layout error")
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
}

func TestCycle_StopFailureLogged(t *testing.T) {
	var logs []string
	saved := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(saved) })

	f, tr := newFake(nil)
	f.stopErr = errors.New("exception 2")

	if _, err := tr.Cycle(context.Background(), []servo.Request{{ID: 7, Kind: servo.KindStop}}); err != nil {
		t.Fatalf("Cycle err=%v", err)
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "stop id=7") || !strings.Contains(logs[0], "exception 2") {
		t.Fatalf("unexpected logs %q", logs)
	}
}

func TestLayout_RegisterSpaceEnd(t *testing.T) {
	past := Layout{Floats: map[servo.Register]uint16{servo.RegPosition: 65535}}
	if err := past.Validate(); err == nil {
		t.Fatalf("expected error for float at 65535")
	}

	last := Layout{Floats: map[servo.Register]uint16{
		servo.RegPosition: 65530,
		servo.RegVelocity: MaxFloatAddress,
	}}
	if err := last.Validate(); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
	if start, qty := last.span(); start != 65530 || qty != 6 {
		t.Fatalf("span: got=(%d,%d) want=(65530,6)", start, qty)
	}
}

func TestConfigureRTU(t *testing.T) {
	rh := modbus.NewRTUClientHandler("/dev/null")
	if err := configureRTU(rh, Config{BaudRate: 19200}); err != nil {
		t.Fatalf("configureRTU err=%v", err)
	}
	if rh.BaudRate != 19200 || rh.DataBits != 8 || rh.StopBits != 1 || rh.Parity != "N" {
		t.Fatalf("unexpected defaults %d %d%s%d", rh.BaudRate, rh.DataBits, rh.Parity, rh.StopBits)
	}

	if err := configureRTU(rh, Config{DataBits: 7, StopBits: 2, Parity: "e"}); err != nil {
		t.Fatalf("configureRTU err=%v", err)
	}
	if rh.DataBits != 7 || rh.StopBits != 2 || rh.Parity != "E" {
		t.Fatalf("line settings not applied: %d%s%d", rh.DataBits, rh.Parity, rh.StopBits)
	}

	for _, bad := range []Config{{DataBits: 9}, {StopBits: 3}, {Parity: "M"}} {
		if err := configureRTU(rh, bad); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}
