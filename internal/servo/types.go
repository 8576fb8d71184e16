// internal/servo/types.go
package servo

import (
	"fmt"
	"sort"
)

// ---- IDENTIFIERS ----

// ID is the bus address of one controller.
type ID uint8

const (
	MinID ID = 1
	MaxID ID = 127
)

// Valid reports whether the id lies in the addressable range.
func (id ID) Valid() bool {
	return id >= MinID && id <= MaxID
}

// Bus names one physical channel.
// DefaultBus is resolved by the router to its configured default.
type Bus int

const DefaultBus Bus = 0

// Range is an inclusive identifier range.
type Range struct {
	First ID
	Last  ID
}

// FullRange covers every addressable id.
func FullRange() Range {
	return Range{First: MinID, Last: MaxID}
}

// IDs expands the range in ascending order.
func (r Range) IDs() []ID {
	if r.First > r.Last {
		return nil
	}
	out := make([]ID, 0, int(r.Last)-int(r.First)+1)
	for id := int(r.First); id <= int(r.Last); id++ {
		out = append(out, ID(id))
	}
	return out
}

// ---- BUS ASSIGNMENT ----

// BusMap assigns candidate ids to buses.
type BusMap map[Bus][]ID

// Buses returns the assigned buses in ascending order.
func (m BusMap) Buses() []Bus {
	out := make([]Bus, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks id range and per-bus uniqueness.
func (m BusMap) Validate() error {
	for _, b := range m.Buses() {
		seen := make(map[ID]struct{}, len(m[b]))
		for _, id := range m[b] {
			if !id.Valid() {
				return fmt.Errorf("servo: bus %d: id %d out of range %d-%d", b, id, MinID, MaxID)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("servo: bus %d: id %d assigned twice", b, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// Targets flattens the map into (bus, id) pairs, bus-major, ids ascending.
func (m BusMap) Targets() []Target {
	var out []Target
	for _, b := range m.Buses() {
		ids := append([]ID(nil), m[b]...)
		SortIDs(ids)
		for _, id := range ids {
			out = append(out, Target{Bus: b, ID: id})
		}
	}
	return out
}

// Target addresses one controller on one bus.
type Target struct {
	Bus Bus
	ID  ID
}

// Flat places ids on a single bus.
func Flat(bus Bus, ids []ID) []Target {
	out := make([]Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, Target{Bus: bus, ID: id})
	}
	return out
}

// ---- REQUESTS / RESULTS ----

// Kind selects what a request asks of a controller.
type Kind uint8

const (
	KindQuery Kind = iota
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindStop:
		return "stop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Request is one per-identifier entry of a cycle.
type Request struct {
	ID   ID
	Bus  Bus
	Kind Kind
}

// Result is what one controller answered within a cycle.
type Result struct {
	ID     ID
	Bus    Bus
	OK     bool
	Values map[Register]float64
}

// Value returns a register value and whether it was reported.
func (r Result) Value(reg Register) (float64, bool) {
	if r.Values == nil {
		return 0, false
	}
	v, ok := r.Values[reg]
	return v, ok
}

// Has reports whether the result is usable and carries reg.
func (r Result) Has(reg Register) bool {
	if !r.OK {
		return false
	}
	_, ok := r.Value(reg)
	return ok
}

// SortIDs sorts ids ascending in place.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
