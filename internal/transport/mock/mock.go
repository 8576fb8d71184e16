// internal/transport/mock/mock.go
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Transport is a scripted in-memory transport.
// Live controllers answer queries with their position; everything else is silent.
type Transport struct {
	mu sync.Mutex

	live      map[servo.Bus]map[servo.ID]float64
	malformed map[servo.ID]bool
	failing   map[servo.ID]bool
	strays    []servo.Result

	// Delay is spent inside every cycle; it honours ctx.
	Delay time.Duration
	// Err fails every round as a whole.
	Err error
	// OnCycle runs at the start of every cycle with its 1-based number.
	OnCycle func(n int)

	cycles [][]servo.Request
	closed int
}

func New() *Transport {
	return &Transport{
		live:      make(map[servo.Bus]map[servo.ID]float64),
		malformed: make(map[servo.ID]bool),
		failing:   make(map[servo.ID]bool),
	}
}

// Live makes ids answer on bus with position = float64(id)/100.
func (t *Transport) Live(bus servo.Bus, ids ...servo.ID) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live[bus] == nil {
		t.live[bus] = make(map[servo.ID]float64)
	}
	for _, id := range ids {
		t.live[bus][id] = float64(id) / 100
	}
	return t
}

// Silence removes ids from every bus.
func (t *Transport) Silence(ids ...servo.ID) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.live {
		for _, id := range ids {
			delete(m, id)
		}
	}
	return t
}

// Malformed makes ids answer without a position register.
func (t *Transport) Malformed(ids ...servo.ID) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.malformed[id] = true
	}
	return t
}

// Failing makes any round that addresses one of ids fail as a whole.
func (t *Transport) Failing(ids ...servo.ID) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.failing[id] = true
	}
	return t
}

// Stray adds a result that every round returns regardless of the batch.
func (t *Transport) Stray(r servo.Result) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strays = append(t.strays, r)
	return t
}

func (t *Transport) Cycle(ctx context.Context, reqs []servo.Request) ([]servo.Result, error) {
	t.mu.Lock()
	t.cycles = append(t.cycles, append([]servo.Request(nil), reqs...))
	n := len(t.cycles)
	hook := t.OnCycle
	delay := t.Delay
	t.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Err != nil {
		return nil, t.Err
	}

	var out []servo.Result
	for _, req := range reqs {
		if t.failing[req.ID] {
			return nil, context.DeadlineExceeded
		}
		if req.Kind != servo.KindQuery {
			continue
		}
		pos, ok := t.live[req.Bus][req.ID]
		if !ok {
			continue
		}
		res := servo.Result{ID: req.ID, Bus: req.Bus, OK: true, Values: map[servo.Register]float64{
			servo.RegMode: 0,
		}}
		if !t.malformed[req.ID] {
			res.Values[servo.RegPosition] = pos
		}
		out = append(out, res)
	}
	out = append(out, t.strays...)

	return out, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

// Cycles returns a copy of every batch seen so far.
func (t *Transport) Cycles() [][]servo.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]servo.Request, len(t.cycles))
	copy(out, t.cycles)
	return out
}

// Closed reports how many times Close was called.
func (t *Transport) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
