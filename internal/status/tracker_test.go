// internal/status/tracker_test.go
package status

import (
	"errors"
	"testing"

	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
)

func report(seq uint64, targets []servo.Target, present ...servo.ID) poller.Report {
	rep := poller.Report{Seq: seq, Rate: 50, Targets: targets}
	for _, id := range present {
		rep.Results = append(rep.Results, servo.Result{
			ID: id, Bus: 1, OK: true,
			Values: map[servo.Register]float64{servo.RegPosition: float64(id)},
		})
	}
	return rep
}

func TestTracker_HealthTransitions(t *testing.T) {
	targets := servo.Flat(1, []servo.ID{1, 2})
	tr := NewTracker(targets)

	if s, _ := tr.Snapshot(targets[0]); s.Health != HealthUnknown {
		t.Fatalf("initial health: got %d", s.Health)
	}

	tr.Observe(report(1, targets, 1))

	s1, _ := tr.Snapshot(targets[0])
	s2, _ := tr.Snapshot(targets[1])
	if s1.Health != HealthOK || !s1.Present || s1.Missed != 0 {
		t.Fatalf("device 1 after reply: %+v", s1)
	}
	// never answered: still unknown, but the miss counts
	if s2.Health != HealthUnknown || s2.Missed != 1 {
		t.Fatalf("device 2 after silence: %+v", s2)
	}

	tr.Observe(report(2, targets))

	s1, _ = tr.Snapshot(targets[0])
	if s1.Health != HealthStale || s1.Missed != 1 || s1.Present || s1.Values != nil {
		t.Fatalf("device 1 after silence: %+v", s1)
	}

	loop := tr.Loop()
	if loop.Cycles != 2 || loop.Timeouts != 3 || loop.Present != 0 || loop.Tracked != 2 {
		t.Fatalf("unexpected loop %+v", loop)
	}
}

func TestTracker_FailedRoundCountsAsSilence(t *testing.T) {
	targets := servo.Flat(1, []servo.ID{1})
	tr := NewTracker(targets)

	rep := report(1, targets, 1)
	rep.Err = errors.New("bus down")
	tr.Observe(rep)

	if s, _ := tr.Snapshot(targets[0]); s.Present || s.Missed != 1 {
		t.Fatalf("failed round treated as reply: %+v", s)
	}
}

func TestTracker_MissedSaturates(t *testing.T) {
	targets := servo.Flat(1, []servo.ID{1})
	tr := NewTracker(targets)

	for i := 0; i < MaxMissed+10; i++ {
		tr.Observe(report(uint64(i+1), targets))
	}

	if s, _ := tr.Snapshot(targets[0]); s.Missed != MaxMissed {
		t.Fatalf("missed did not saturate: %d", s.Missed)
	}
}

func TestTracker_DefaultBusTargetTakesResolvedBus(t *testing.T) {
	targets := servo.Flat(servo.DefaultBus, []servo.ID{4})
	tr := NewTracker(targets)

	tr.Observe(report(1, targets, 4))

	if s, _ := tr.Snapshot(targets[0]); s.Bus != 1 {
		t.Fatalf("bus: got %d want 1", s.Bus)
	}
}

func TestTracker_RatesSkipFailedRounds(t *testing.T) {
	targets := servo.Flat(1, []servo.ID{1})
	tr := NewTracker(targets)

	tr.Observe(report(1, targets, 1))

	failed := report(2, targets)
	failed.Err = errors.New("bus down")
	failed.Rate = 1000
	tr.Observe(failed)

	if s := tr.Rates(); s.N != 1 || s.Mean != 50 {
		t.Fatalf("unexpected rate summary %+v", s)
	}
}
