// internal/transport/canbus/canbus.go
package canbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/servoscan/internal/moteus"
	"github.com/tamzrod/servoscan/internal/servo"
)

// ErrTimeout is returned by Conn.ReadFrame when no frame arrived in time.
var ErrTimeout = errors.New("canbus: read timeout")

// Conn is a frame-level connection to one CAN-FD bus.
type Conn interface {
	WriteFrame(f moteus.Frame) error
	// ReadFrame blocks for at most timeout.
	ReadFrame(timeout time.Duration) (moteus.Frame, error)
	// Flush discards frames received but not yet read.
	Flush() error
	Close() error
}

// Config tunes one bus transport.
type Config struct {
	// Timeout bounds how long a cycle waits for replies.
	Timeout time.Duration
	Query   moteus.QueryFormat
}

const (
	defaultTimeout = 20 * time.Millisecond
	readSlice      = 5 * time.Millisecond
)

// Transport runs moteus query/stop cycles over a Conn.
type Transport struct {
	conn    Conn
	timeout time.Duration
	query   []byte
}

func New(conn Conn, cfg Config) (*Transport, error) {
	if conn == nil {
		return nil, errors.New("canbus: conn required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Query == nil {
		cfg.Query = moteus.DefaultQuery()
	}
	return &Transport{
		conn:    conn,
		timeout: cfg.Timeout,
		query:   moteus.EncodeQuery(cfg.Query),
	}, nil
}

// Cycle writes every request, then collects replies until each query
// was answered or the timeout elapsed.
func (t *Transport) Cycle(ctx context.Context, reqs []servo.Request) ([]servo.Result, error) {
	// late replies from an earlier round must not leak into this one
	if err := t.conn.Flush(); err != nil {
		return nil, fmt.Errorf("canbus: flush: %w", err)
	}

	pending := make(map[servo.ID]servo.Bus)
	for _, req := range reqs {
		f, err := t.frameFor(req)
		if err != nil {
			return nil, err
		}
		if err := t.conn.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("canbus: write id=%d: %w", req.ID, err)
		}
		if req.Kind == servo.KindQuery {
			pending[req.ID] = req.Bus
		}
	}

	got := make(map[servo.ID]servo.Result, len(pending))
	deadline := time.Now().Add(t.timeout)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining > readSlice {
			remaining = readSlice
		}

		f, err := t.conn.ReadFrame(remaining)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("canbus: read: %w", err)
		}

		if moteus.ReplyDest(f.ArbitrationID) != 0 {
			continue
		}
		id := moteus.ReplySource(f.ArbitrationID)
		bus, ok := pending[id]
		if !ok {
			continue
		}

		values, err := moteus.DecodeReply(f.Data)
		if err != nil {
			// malformed is the same as silent
			continue
		}

		got[id] = servo.Result{ID: id, Bus: bus, OK: true, Values: values}
		delete(pending, id)
	}

	// request order
	out := make([]servo.Result, 0, len(got))
	for _, req := range reqs {
		if r, ok := got[req.ID]; ok {
			out = append(out, r)
			delete(got, req.ID)
		}
	}
	return out, nil
}

func (t *Transport) Close() error {
	return t.conn.Close()
}

func (t *Transport) frameFor(req servo.Request) (moteus.Frame, error) {
	var payload []byte
	reply := false

	switch req.Kind {
	case servo.KindQuery:
		payload = t.query
		reply = true
	case servo.KindStop:
		payload = moteus.EncodeStop()
	default:
		return moteus.Frame{}, fmt.Errorf("canbus: unsupported request %s", req.Kind)
	}

	data, err := moteus.Pad(payload)
	if err != nil {
		return moteus.Frame{}, err
	}

	return moteus.Frame{
		ArbitrationID: moteus.ArbitrationID(req.ID, reply),
		Data:          data,
	}, nil
}
