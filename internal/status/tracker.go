// internal/status/tracker.go
package status

import (
	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
)

type device struct {
	seen bool
	snap Snapshot
}

// Tracker folds poll reports into per-device health.
// Not safe for concurrent use; one consumer owns it.
type Tracker struct {
	order   []servo.Target
	devices map[servo.Target]*device
	loop    Loop
	rates   *rateWindow
}

// NewTracker tracks a fixed target set. Every device starts unknown.
func NewTracker(targets []servo.Target) *Tracker {
	t := &Tracker{
		order:   make([]servo.Target, 0, len(targets)),
		devices: make(map[servo.Target]*device, len(targets)),
		rates:   newRateWindow(DefaultRateWindow),
	}
	for _, tg := range targets {
		if _, dup := t.devices[tg]; dup {
			continue
		}
		t.order = append(t.order, tg)
		t.devices[tg] = &device{snap: Snapshot{
			Target: tg,
			Health: HealthUnknown,
			Bus:    uint16(tg.Bus),
		}}
	}
	t.loop.Tracked = len(t.order)
	return t
}

// Observe applies one report. A failed round counts as no replies.
func (t *Tracker) Observe(rep poller.Report) {
	t.loop.Cycles = rep.Seq
	t.loop.Rate = rep.Rate
	t.loop.Present = 0

	if rep.Err == nil && rep.Rate > 0 {
		t.rates.add(rep.Rate)
	}

	for _, tg := range t.order {
		d := t.devices[tg]

		var (
			res servo.Result
			ok  bool
		)
		if rep.Err == nil {
			res, ok = rep.Result(tg)
		}

		if ok {
			d.seen = true
			d.snap.Health = HealthOK
			d.snap.Missed = 0
			d.snap.Bus = uint16(res.Bus)
			d.snap.Present = true
			d.snap.Values = res.Values
			t.loop.Present++
			continue
		}

		if d.seen {
			d.snap.Health = HealthStale
		}
		if d.snap.Missed < MaxMissed {
			d.snap.Missed++
		}
		d.snap.Present = false
		d.snap.Values = nil
		t.loop.Timeouts++
	}
}

// Snapshot returns the current state of one device.
func (t *Tracker) Snapshot(tg servo.Target) (Snapshot, bool) {
	d, ok := t.devices[tg]
	if !ok {
		return Snapshot{}, false
	}
	return d.snap, true
}

// Snapshots returns every device in tracking order.
func (t *Tracker) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(t.order))
	for _, tg := range t.order {
		out = append(out, t.devices[tg].snap)
	}
	return out
}

func (t *Tracker) Loop() Loop { return t.loop }

// Rates summarizes the rate of recent successful cycles.
func (t *Tracker) Rates() RateSummary { return t.rates.summary() }
