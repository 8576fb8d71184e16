// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
)

// Console renders discovery and poll output as plain text lines.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// ---- discovery ----

func (c *Console) ScanStart() {
	fmt.Fprintln(c.w, "Scanning for connected servos...")
}

func (c *Console) Found(t servo.Target) {
	fmt.Fprintf(c.w, "Found servo with ID: %d\n", t.ID)
}

// Discovered prints the per-bus summary of a scan.
func (c *Console) Discovered(found map[servo.Bus][]servo.ID) {
	total := 0
	for _, ids := range found {
		total += len(ids)
	}
	if total == 0 {
		fmt.Fprintln(c.w, "No servos found.")
		return
	}

	buses := make(servo.BusMap, len(found))
	for b, ids := range found {
		buses[b] = ids
	}
	for _, b := range buses.Buses() {
		if b == servo.DefaultBus {
			fmt.Fprintf(c.w, "Discovered servos: %s\n", formatIDs(found[b]))
			continue
		}
		fmt.Fprintf(c.w, "Discovered servos on bus %d: %s\n", b, formatIDs(found[b]))
	}
}

// ---- polling ----

func (c *Console) PollStart() {
	fmt.Fprintln(c.w, "\nReading position data and data rate...")
}

// Cycle prints one report: a line per answering servo, the rate and timeouts.
func (c *Console) Cycle(rep poller.Report, loop status.Loop) {
	if rep.Err != nil {
		fmt.Fprintf(c.w, "Cycle %d failed: %v\n", rep.Seq, rep.Err)
	}

	for _, res := range rep.Results {
		fmt.Fprintf(c.w, "Servo ID: %d (bus %d), Mode: %s, Position: %s\n",
			res.ID, res.Bus, formatMode(res), formatPosition(res))
	}

	fmt.Fprintf(c.w, "Data Rate: %.2f Hz\n", rep.Rate)

	if missing := rep.Missing(); len(missing) > 0 {
		ids := make([]servo.ID, 0, len(missing))
		for _, t := range missing {
			ids = append(ids, t.ID)
		}
		fmt.Fprintf(c.w, "No reply: %s\n", formatIDs(ids))
	}
	fmt.Fprintf(c.w, "RX Timeouts: %d\n\n", loop.Timeouts)
}

// RateSummary prints the rate statistics of the recent window.
func (c *Console) RateSummary(s status.RateSummary) {
	if s.N == 0 {
		return
	}
	fmt.Fprintf(c.w, "Data Rate over %d cycles: mean %.2f Hz, stddev %.2f, min %.2f, max %.2f\n",
		s.N, s.Mean, s.StdDev, s.Min, s.Max)
}

func (c *Console) Exiting() {
	fmt.Fprintln(c.w, "Exiting...")
}

// ---- helpers ----

func formatMode(res servo.Result) string {
	mode, ok := res.Value(servo.RegMode)
	if !ok || math.IsNaN(mode) {
		return "-"
	}
	return fmt.Sprintf("%d", int(mode))
}

func formatPosition(res servo.Result) string {
	pos, ok := res.Value(servo.RegPosition)
	if !ok || math.IsNaN(pos) {
		return "N/A"
	}
	return fmt.Sprintf("%.6f rev (%.6f rad)", pos, pos*2*math.Pi)
}

func formatIDs(ids []servo.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
