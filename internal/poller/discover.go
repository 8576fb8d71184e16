// internal/poller/discover.go
package poller

import (
	"context"

	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/transport"
)

// ScanOptions tunes discovery.
type ScanOptions struct {
	// Expect lists the registers a reply must carry; empty => position.
	Expect []servo.Register
	// OnFound runs for each live controller as it is found.
	OnFound func(servo.Target)
}

func (o ScanOptions) expect() []servo.Register {
	if len(o.Expect) == 0 {
		return []servo.Register{servo.RegPosition}
	}
	return o.Expect
}

// Discover probes each candidate on bus with a single-request cycle.
// Anything short of a reply carrying the expected registers counts as absent.
// Single pass. The result is sorted and a subset of candidates.
// A cancelled ctx ends the scan early with what was found so far.
func Discover(ctx context.Context, tr transport.Transport, candidates []servo.ID, bus servo.Bus, opts ScanOptions) ([]servo.ID, error) {
	found := make([]servo.ID, 0)
	seen := make(map[servo.ID]struct{}, len(candidates))

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			servo.SortIDs(found)
			return found, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		target := servo.Target{Bus: bus, ID: id}
		if !probe(ctx, tr, target, opts.expect()) {
			continue
		}

		found = append(found, id)
		if opts.OnFound != nil {
			opts.OnFound(target)
		}
	}

	servo.SortIDs(found)
	return found, ctx.Err()
}

// DiscoverBuses runs Discover on every bus of the assignment.
// Every bus appears in the result, possibly with an empty set.
func DiscoverBuses(ctx context.Context, tr transport.Transport, assignment servo.BusMap, opts ScanOptions) (map[servo.Bus][]servo.ID, error) {
	out := make(map[servo.Bus][]servo.ID, len(assignment))

	for _, bus := range assignment.Buses() {
		out[bus] = []servo.ID{}
	}

	for _, bus := range assignment.Buses() {
		ids, err := Discover(ctx, tr, assignment[bus], bus, opts)
		out[bus] = ids
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func probe(ctx context.Context, tr transport.Transport, t servo.Target, expect []servo.Register) bool {
	results, err := tr.Cycle(ctx, transport.Queries([]servo.Target{t}))
	if err != nil {
		return false
	}

	for _, res := range results {
		if !matches(t, res) {
			continue
		}
		ok := true
		for _, reg := range expect {
			if !res.Has(reg) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
