// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls until ctx is cancelled and emits one Report per cycle on out.
// Cycles never overlap. No retries. out is closed on return.
func (p *Poller) Run(ctx context.Context, out chan<- Report) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}

		rep := p.PollOnce(ctx)

		// a cycle cut short by cancellation is not reported
		if ctx.Err() != nil {
			return
		}

		if !sleep(ctx, p.cfg.Interval-rep.Elapsed) {
			return
		}

		select {
		case out <- rep:
		case <-ctx.Done():
			return
		}
	}
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
