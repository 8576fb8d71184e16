// internal/live/hub.go
package live

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
)

// State is the JSON view of the latest cycle.
type State struct {
	RunID    string   `json:"run_id"`
	Seq      uint64   `json:"seq"`
	Rate     float64  `json:"rate_hz"`
	Timeouts uint64   `json:"timeouts"`
	Error    string   `json:"error,omitempty"`
	Devices  []Device `json:"devices"`
}

type Device struct {
	Bus     int    `json:"bus"`
	ID      int    `json:"id"`
	Health  string `json:"health"`
	Missed  uint16 `json:"missed"`
	Present bool   `json:"present"`

	// nil when absent or NaN
	Mode     *float64 `json:"mode,omitempty"`
	Position *float64 `json:"position_rev,omitempty"`
	Velocity *float64 `json:"velocity,omitempty"`
	Torque   *float64 `json:"torque,omitempty"`
}

// subBuffer bounds how far a slow subscriber may lag before frames are dropped.
const subBuffer = 8

// Hub keeps the latest State and fans it out to subscribers.
// Publish never blocks on a subscriber.
type Hub struct {
	mu     sync.Mutex
	latest []byte
	state  *State
	subs   map[chan []byte]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Publish builds the State for rep and delivers it.
func (h *Hub) Publish(rep poller.Report, t *status.Tracker) error {
	st := buildState(rep, t)

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.latest = raw
	h.state = st

	for ch := range h.subs {
		select {
		case ch <- raw:
		default:
			// slow reader loses this frame
		}
	}
	return nil
}

// Latest returns the last published state, or nil.
func (h *Hub) Latest() *State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Subscribe returns a channel of JSON frames, primed with the latest one.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, subBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch
	}
	if h.latest != nil {
		ch <- h.latest
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}

func buildState(rep poller.Report, t *status.Tracker) *State {
	st := &State{
		RunID:    rep.RunID.String(),
		Seq:      rep.Seq,
		Rate:     rep.Rate,
		Timeouts: t.Loop().Timeouts,
		Devices:  []Device{},
	}
	if rep.Err != nil {
		st.Error = rep.Err.Error()
	}

	for _, s := range t.Snapshots() {
		d := Device{
			Bus:     int(s.Bus),
			ID:      int(s.Target.ID),
			Health:  healthName(s.Health),
			Missed:  s.Missed,
			Present: s.Present,
		}
		if s.Present {
			d.Mode = value(s.Values, servo.RegMode)
			d.Position = value(s.Values, servo.RegPosition)
			d.Velocity = value(s.Values, servo.RegVelocity)
			d.Torque = value(s.Values, servo.RegTorque)
		}
		st.Devices = append(st.Devices, d)
	}
	return st
}

func healthName(h uint16) string {
	switch h {
	case status.HealthOK:
		return "ok"
	case status.HealthStale:
		return "stale"
	default:
		return "unknown"
	}
}

// NaN has no JSON encoding
func value(values map[servo.Register]float64, reg servo.Register) *float64 {
	v, ok := values[reg]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
