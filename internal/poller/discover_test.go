// internal/poller/discover_test.go
package poller

import (
	"context"
	"testing"

	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/transport"
	"github.com/tamzrod/servoscan/internal/transport/mock"
)

func idsEqual(a, b []servo.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiscover_ExactRange(t *testing.T) {
	tr := mock.New().Live(servo.DefaultBus, servo.Range{First: 5, Last: 9}.IDs()...)

	got, err := Discover(context.Background(), tr, servo.FullRange().IDs(), servo.DefaultBus, ScanOptions{})
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}

	want := servo.Range{First: 5, Last: 9}.IDs()
	if !idsEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestDiscover_SubsetOfCandidates(t *testing.T) {
	tr := mock.New().Live(1, 1, 2, 3, 40, 41).
		Stray(servo.Result{ID: 77, Bus: 1, OK: true, Values: map[servo.Register]float64{servo.RegPosition: 0}})

	candidates := []servo.ID{41, 3, 2, 10, 3}
	got, err := Discover(context.Background(), tr, candidates, 1, ScanOptions{})
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}

	if !idsEqual(got, []servo.ID{2, 3, 41}) {
		t.Fatalf("unexpected result %v", got)
	}

	// one probe per distinct candidate
	if n := len(tr.Cycles()); n != 4 {
		t.Fatalf("expected 4 probes, got %d", n)
	}
}

func TestDiscover_AbsentCases(t *testing.T) {
	tr := mock.New().Live(1, 1, 2, 3).Malformed(2).Failing(3)

	var found []servo.Target
	got, err := Discover(context.Background(), tr, []servo.ID{1, 2, 3, 4}, 1, ScanOptions{
		OnFound: func(t servo.Target) { found = append(found, t) },
	})
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}

	if !idsEqual(got, []servo.ID{1}) {
		t.Fatalf("unexpected result %v", got)
	}
	if len(found) != 1 || found[0] != (servo.Target{Bus: 1, ID: 1}) {
		t.Fatalf("unexpected OnFound calls %v", found)
	}
}

func TestDiscover_ExpectedRegister(t *testing.T) {
	tr := mock.New().Live(1, 1, 2).Malformed(2)

	// mode is present even in malformed replies
	got, err := Discover(context.Background(), tr, []servo.ID{1, 2}, 1, ScanOptions{Expect: []servo.Register{servo.RegMode}})
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}
	if !idsEqual(got, []servo.ID{1, 2}) {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	tr := mock.New().Live(1, 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	tr.OnCycle = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	got, err := Discover(ctx, tr, []servo.ID{1, 2, 3}, 1, ScanOptions{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	// the probe in flight completes; the third is never sent
	if !idsEqual(got, []servo.ID{1, 2}) {
		t.Fatalf("unexpected partial result %v", got)
	}
	if n := len(tr.Cycles()); n != 2 {
		t.Fatalf("expected 2 probes, got %d", n)
	}
}

func TestDiscoverBuses_OnlyBusOneAnswers(t *testing.T) {
	tr := mock.New().Live(1, 11, 12)

	got, err := DiscoverBuses(context.Background(), tr, servo.BusMap{
		1: {11, 12},
		2: {21, 22},
	}, ScanOptions{})
	if err != nil {
		t.Fatalf("DiscoverBuses err=%v", err)
	}

	if !idsEqual(got[1], []servo.ID{11, 12}) {
		t.Fatalf("bus 1: got %v", got[1])
	}
	ids, ok := got[2]
	if !ok || len(ids) != 0 {
		t.Fatalf("bus 2: want empty set, got %v (present=%v)", ids, ok)
	}
}

func TestDiscoverBuses_ThroughRouter(t *testing.T) {
	bus1 := mock.New().Live(1, 11)
	bus2 := mock.New()

	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{1: bus1, 2: bus2}, 1)
	if err != nil {
		t.Fatalf("NewRouter err=%v", err)
	}

	got, err := DiscoverBuses(context.Background(), r, servo.BusMap{1: {11}, 2: {21}}, ScanOptions{})
	if err != nil {
		t.Fatalf("DiscoverBuses err=%v", err)
	}
	if !idsEqual(got[1], []servo.ID{11}) || len(got[2]) != 0 {
		t.Fatalf("unexpected result %v", got)
	}
	if n := len(bus2.Cycles()); n != 1 {
		t.Fatalf("bus 2 probed %d times, want 1", n)
	}
}
