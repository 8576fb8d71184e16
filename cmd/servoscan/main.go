// cmd/servoscan/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/servoscan/internal/config"
	"github.com/tamzrod/servoscan/internal/live"
	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/record"
	"github.com/tamzrod/servoscan/internal/report"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
	"github.com/tamzrod/servoscan/internal/transport"
	"github.com/tamzrod/servoscan/internal/writer"
)

const (
	modeScan     = "scan"
	modePoll     = "poll"
	modeScanPoll = "scanpoll"
)

func main() {
	mode := flag.String("mode", modeScanPoll, "scan | poll | scanpoll")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: servoscan [-mode scan|poll|scanpoll] <config.yaml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	switch *mode {
	case modeScan, modePoll, modeScanPoll:
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := report.NewConsole(os.Stdout)

	if err := run(ctx, cfg, *mode, con); err != nil {
		log.Fatalf("%v", err)
	}

	if ctx.Err() != nil {
		con.Exiting()
	}
}

// run owns every resource it opens; all of them are released before it returns.
func run(ctx context.Context, cfg *config.Config, mode string, con *report.Console) error {
	// ---- transport ----
	tr, closeBuses, err := poller.Build(cfg)
	if err != nil {
		return fmt.Errorf("transport build failed: %w", err)
	}
	defer func() {
		if err := closeBuses(); err != nil {
			log.Printf("transport close: %v", err)
		}
	}()

	// ---- identifier set ----
	var targets []servo.Target

	static := cfg.StaticServos()
	if mode == modePoll || (mode == modeScanPoll && static != nil) {
		if static == nil {
			return errors.New("poll mode requires poll.servos")
		}
		if err := static.Validate(); err != nil {
			return err
		}
		targets = static.Targets()
	} else {
		found, err := scan(ctx, tr, cfg, con)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		targets = servo.BusMap(found).Targets()
	}

	if mode == modeScan {
		return nil
	}
	if len(targets) == 0 {
		log.Printf("no servos to poll")
		return nil
	}

	// ---- poller ----
	p, err := poller.New(poller.Config{Targets: targets, Interval: cfg.Interval()}, tr)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}

	if cfg.Poll.StopOnStart {
		// failure is logged by the poller and never fatal
		_ = p.Stop(ctx)
	}

	tracker := status.NewTracker(targets)

	// ---- mirror (optional) ----
	var mirror writer.Writer
	if cfg.Mirror != nil {
		plan, err := writer.BuildPlan(*cfg.Mirror, targets)
		if err != nil {
			return fmt.Errorf("mirror plan failed: %w", err)
		}
		cli, closeMirror, err := writer.BuildEndpointClient(*cfg.Mirror)
		if err != nil {
			return fmt.Errorf("mirror connect failed: %w", err)
		}
		defer closeMirror()
		mirror = writer.New(plan, cli)
	}

	// ---- recorder (optional) ----
	var db *record.DB
	if cfg.Record != nil {
		db, err = record.Open(cfg.Record.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.StartRun(p.RunID(), time.Now(), len(targets)); err != nil {
			return err
		}
	}

	// ---- live view (optional) ----
	var hub *live.Hub
	if cfg.Live != nil {
		hub = live.NewHub()
		defer hub.Close()
		go func() {
			if err := live.Serve(ctx, cfg.Live.Listen, live.Router(hub)); err != nil {
				log.Printf("live server (listen=%s): %v", cfg.Live.Listen, err)
			}
		}()
	}

	log.Printf("polling %d servos (run=%s)", len(targets), p.RunID())
	con.PollStart()

	out := make(chan poller.Report)
	go p.Run(ctx, out)

	for rep := range out {
		tracker.Observe(rep)
		con.Cycle(rep, tracker.Loop())

		if mirror != nil {
			if err := mirror.Write(tracker); err != nil {
				log.Printf("mirror write failed (cycle=%d): %v", rep.Seq, err)
			}
		}
		if db != nil {
			if err := db.RecordReport(rep); err != nil {
				log.Printf("record failed (cycle=%d): %v", rep.Seq, err)
			}
		}
		if hub != nil {
			if err := hub.Publish(rep, tracker); err != nil {
				log.Printf("live publish failed (cycle=%d): %v", rep.Seq, err)
			}
		}
	}

	con.RateSummary(tracker.Rates())
	return nil
}

// scan discovers live servos, per bus when buses list servos, else over
// the scan range on the default bus.
func scan(ctx context.Context, tr transport.Transport, cfg *config.Config, con *report.Console) (map[servo.Bus][]servo.ID, error) {
	opts := poller.ScanOptions{
		Expect:  []servo.Register{cfg.ScanRegister()},
		OnFound: con.Found,
	}

	var (
		found map[servo.Bus][]servo.ID
		err   error
	)

	if assignment := cfg.Assignment(); assignment != nil {
		con.ScanStart()
		found, err = poller.DiscoverBuses(ctx, tr, assignment, opts)
	} else {
		con.ScanStart()
		var ids []servo.ID
		ids, err = poller.Discover(ctx, tr, cfg.ScanRange().IDs(), servo.DefaultBus, opts)
		found = map[servo.Bus][]servo.ID{servo.DefaultBus: ids}
	}

	if err != nil {
		return found, err
	}

	con.Discovered(found)
	return found, nil
}
