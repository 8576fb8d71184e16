// internal/transport/transport.go
package transport

import (
	"context"

	"github.com/tamzrod/servoscan/internal/servo"
)

// Transport runs one batched request/response round.
// A non-nil error means the round as a whole failed.
// Identifiers that did not answer are simply absent from the results.
type Transport interface {
	Cycle(ctx context.Context, reqs []servo.Request) ([]servo.Result, error)
	Close() error
}

// Queries builds one query request per target.
func Queries(targets []servo.Target) []servo.Request {
	return requests(targets, servo.KindQuery)
}

// Stops builds one stop request per target.
func Stops(targets []servo.Target) []servo.Request {
	return requests(targets, servo.KindStop)
}

func requests(targets []servo.Target, kind servo.Kind) []servo.Request {
	out := make([]servo.Request, 0, len(targets))
	for _, t := range targets {
		out = append(out, servo.Request{ID: t.ID, Bus: t.Bus, Kind: kind})
	}
	return out
}
