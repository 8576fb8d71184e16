// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/transport"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Targets []servo.Target
	// Interval is the cycle period. Zero polls back to back.
	Interval time.Duration
	// RunID tags every report; zero => generated.
	RunID uuid.UUID
}

// Poller is a clock-driven reader over a fixed target set.
type Poller struct {
	cfg Config
	tr  transport.Transport

	seq uint64
	now func() time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, tr transport.Transport) (*Poller, error) {
	if tr == nil {
		return nil, errors.New("poller: transport required")
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("poller: at least one target required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("poller: interval must be >= 0")
	}
	if cfg.RunID == uuid.Nil {
		cfg.RunID = uuid.New()
	}

	targets := make([]servo.Target, len(cfg.Targets))
	copy(targets, cfg.Targets)
	cfg.Targets = targets

	return &Poller{cfg: cfg, tr: tr, now: time.Now}, nil
}

func (p *Poller) RunID() uuid.UUID { return p.cfg.RunID }

func (p *Poller) Targets() []servo.Target {
	out := make([]servo.Target, len(p.cfg.Targets))
	copy(out, p.cfg.Targets)
	return out
}

// PollOnce performs exactly one poll cycle.
// Results for identifiers outside the batch are dropped.
func (p *Poller) PollOnce(ctx context.Context) Report {
	p.seq++

	rep := Report{
		RunID:   p.cfg.RunID,
		Seq:     p.seq,
		Targets: p.cfg.Targets,
	}

	start := p.now()
	rep.At = start

	results, err := p.tr.Cycle(ctx, transport.Queries(p.cfg.Targets))

	rep.Elapsed = p.now().Sub(start)
	rep.Rate = Rate(rep.Elapsed)

	if err != nil {
		rep.Err = err
		return rep
	}

	rep.Results = p.filter(results)
	return rep
}

// filter keeps one OK result per target of the batch.
func (p *Poller) filter(results []servo.Result) []servo.Result {
	taken := make([]bool, len(p.cfg.Targets))
	out := make([]servo.Result, 0, len(results))

	for _, res := range results {
		if !res.OK {
			continue
		}
		for i, t := range p.cfg.Targets {
			if taken[i] || !matches(t, res) {
				continue
			}
			taken[i] = true
			out = append(out, res)
			break
		}
	}
	return out
}

// Stop sends one cycle of stop commands to every target.
// Failures are logged and returned; callers treat them as non-fatal.
func (p *Poller) Stop(ctx context.Context) error {
	if _, err := p.tr.Cycle(ctx, transport.Stops(p.cfg.Targets)); err != nil {
		monitoring.Logf("poller: stop (run=%s): %v", p.cfg.RunID, err)
		return err
	}
	return nil
}

// Rate converts a cycle duration into cycles per second.
func Rate(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return 1 / elapsed.Seconds()
}
