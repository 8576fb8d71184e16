// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	cfg "github.com/tamzrod/servoscan/internal/config"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
	wmodbus "github.com/tamzrod/servoscan/internal/writer/modbus"
)

// blocksPerBus leaves block 0 of the first bus for loop data.
const blocksPerBus = int(servo.MaxID) + 1

// BuildPlan lays out one block per target.
// Buses are ranked in ascending order; block = rank*128 + id.
// A single bus therefore maps id n to block n.
func BuildPlan(m cfg.MirrorConfig, targets []servo.Target) (Plan, error) {
	if len(targets) == 0 {
		return Plan{}, errors.New("writer: no devices to mirror")
	}

	var buses []servo.Bus
	seen := map[servo.Bus]bool{}
	for _, t := range targets {
		if !seen[t.Bus] {
			seen[t.Bus] = true
			buses = append(buses, t.Bus)
		}
	}
	sort.Slice(buses, func(i, j int) bool { return buses[i] < buses[j] })

	rank := make(map[servo.Bus]int, len(buses))
	for i, b := range buses {
		rank[b] = i
	}

	plan := Plan{
		UnitID:      m.UnitID,
		BaseAddress: m.BaseAddress,
		Blocks:      make(map[servo.Target]uint16, len(targets)),
	}

	for _, t := range targets {
		block := rank[t.Bus]*blocksPerBus + int(t.ID)
		end := int(m.BaseAddress) + (block+1)*status.SlotsPerDevice
		if end > 1<<16 {
			return Plan{}, fmt.Errorf(
				"writer: block for bus=%d id=%d ends at %d, past the register space",
				t.Bus, t.ID, end,
			)
		}
		plan.Blocks[t] = uint16(block)
	}

	return plan, nil
}

// BuildEndpointClient connects to the mirror endpoint.
func BuildEndpointClient(m cfg.MirrorConfig) (*wmodbus.EndpointClient, func() error, error) {
	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: m.Endpoint,
		Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}
