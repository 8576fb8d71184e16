// internal/status/stats.go
package status

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultRateWindow is how many cycles RateStats covers.
const DefaultRateWindow = 500

// RateSummary describes the cycle rate over the recent window.
type RateSummary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// rateWindow is a fixed-size ring of recent cycle rates.
type rateWindow struct {
	buf  []float64
	next int
	full bool
}

func newRateWindow(size int) *rateWindow {
	if size <= 0 {
		size = DefaultRateWindow
	}
	return &rateWindow{buf: make([]float64, size)}
}

func (w *rateWindow) add(v float64) {
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

func (w *rateWindow) values() []float64 {
	if w.full {
		return w.buf
	}
	return w.buf[:w.next]
}

func (w *rateWindow) summary() RateSummary {
	vals := w.values()
	if len(vals) == 0 {
		return RateSummary{}
	}

	s := RateSummary{
		N:   len(vals),
		Min: floats.Min(vals),
		Max: floats.Max(vals),
	}
	if len(vals) == 1 {
		s.Mean = vals[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	return s
}
