// internal/poller/types.go
package poller

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Report is a snapshot produced by one poll cycle.
type Report struct {
	RunID uuid.UUID
	// Seq increases strictly across the cycles of one Poller.
	Seq uint64
	At  time.Time

	Elapsed time.Duration
	Rate    float64 // cycles per second; 0 when elapsed <= 0

	// Targets is the batch the cycle addressed.
	Targets []servo.Target
	// Results holds at most one result per target, in transport order.
	Results []servo.Result

	Err error // non-nil means the round failed as a whole
}

// Result returns the result for t, if the cycle produced one.
func (r Report) Result(t servo.Target) (servo.Result, bool) {
	for _, res := range r.Results {
		if matches(t, res) {
			return res, true
		}
	}
	return servo.Result{}, false
}

// Missing lists the targets of the batch that produced no result.
func (r Report) Missing() []servo.Target {
	var out []servo.Target
	for _, t := range r.Targets {
		if _, ok := r.Result(t); !ok {
			out = append(out, t)
		}
	}
	return out
}

// matches reports whether res answers t.
// A target on the default bus accepts a result from whichever bus served it.
func matches(t servo.Target, res servo.Result) bool {
	if t.ID != res.ID {
		return false
	}
	return t.Bus == servo.DefaultBus || t.Bus == res.Bus
}
