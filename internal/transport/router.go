// internal/transport/router.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/servo"
)

// Router owns one transport per bus and dispatches requests by bus.
// Requests on servo.DefaultBus go to the default bus.
type Router struct {
	buses       map[servo.Bus]Transport
	defaultBus  servo.Bus
	warnedBuses map[servo.Bus]bool
}

// NewRouter builds a router. defaultBus must be one of buses.
func NewRouter(buses map[servo.Bus]Transport, defaultBus servo.Bus) (*Router, error) {
	if len(buses) == 0 {
		return nil, errors.New("router: at least one bus required")
	}
	if _, ok := buses[defaultBus]; !ok {
		return nil, fmt.Errorf("router: default bus %d not configured", defaultBus)
	}
	return &Router{
		buses:       buses,
		defaultBus:  defaultBus,
		warnedBuses: make(map[servo.Bus]bool),
	}, nil
}

// DefaultBus returns the bus that servo.DefaultBus resolves to.
func (r *Router) DefaultBus() servo.Bus { return r.defaultBus }

// Cycle forwards each bus group in ascending bus order.
// A failing bus loses its own results only; the error is reported
// only when every addressed bus failed.
func (r *Router) Cycle(ctx context.Context, reqs []servo.Request) ([]servo.Result, error) {
	groups := make(map[servo.Bus][]servo.Request)
	for _, req := range reqs {
		bus := req.Bus
		if bus == servo.DefaultBus {
			bus = r.defaultBus
		}
		req.Bus = bus
		groups[bus] = append(groups[bus], req)
	}

	order := make([]servo.Bus, 0, len(groups))
	for b := range groups {
		order = append(order, b)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var (
		out    []servo.Result
		errs   []string
		failed int
	)

	for _, bus := range order {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		tr, ok := r.buses[bus]
		if !ok {
			if !r.warnedBuses[bus] {
				monitoring.Logf("router: no transport for bus %d; its requests are dropped", bus)
				r.warnedBuses[bus] = true
			}
			failed++
			continue
		}

		res, err := tr.Cycle(ctx, groups[bus])
		if err != nil {
			errs = append(errs, fmt.Sprintf("bus %d: %v", bus, err))
			failed++
			continue
		}

		for _, x := range res {
			x.Bus = bus
			out = append(out, x)
		}
	}

	if len(order) > 0 && failed == len(order) && len(errs) > 0 {
		return nil, errors.New("router: " + strings.Join(errs, " | "))
	}
	for _, e := range errs {
		monitoring.Logf("router: %s", e)
	}

	return out, nil
}

// Close closes every bus transport and returns the last error.
func (r *Router) Close() error {
	var last error
	for _, b := range r.sortedBuses() {
		if err := r.buses[b].Close(); err != nil {
			last = err
		}
	}
	return last
}

func (r *Router) sortedBuses() []servo.Bus {
	out := make([]servo.Bus, 0, len(r.buses))
	for b := range r.buses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
