// internal/transport/router_test.go
package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/servoscan/internal/monitoring"
	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/transport"
	"github.com/tamzrod/servoscan/internal/transport/mock"
)

func init() { monitoring.SetLogger(nil) }

func TestRouterDispatchesByBus(t *testing.T) {
	b1 := mock.New().Live(1, 11, 12)
	b2 := mock.New().Live(2, 21)

	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{1: b1, 2: b2}, 1)
	require.NoError(t, err)

	reqs := transport.Queries(servo.BusMap{1: {11, 12}, 2: {21, 22}}.Targets())
	res, err := r.Cycle(context.Background(), reqs)
	require.NoError(t, err)

	require.Len(t, res, 3)
	assert.Equal(t, servo.Bus(1), res[0].Bus)
	assert.Equal(t, servo.Bus(2), res[2].Bus)
	assert.Equal(t, servo.ID(21), res[2].ID)

	require.Len(t, b1.Cycles(), 1)
	assert.Len(t, b1.Cycles()[0], 2)
	require.Len(t, b2.Cycles(), 1)
	assert.Len(t, b2.Cycles()[0], 2)
}

func TestRouterResolvesDefaultBus(t *testing.T) {
	b2 := mock.New().Live(2, 5)
	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{1: mock.New(), 2: b2}, 2)
	require.NoError(t, err)

	res, err := r.Cycle(context.Background(), []servo.Request{{ID: 5}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, servo.Bus(2), res[0].Bus)
}

func TestRouterUnknownBusIsSilent(t *testing.T) {
	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{1: mock.New().Live(1, 1)}, 1)
	require.NoError(t, err)

	res, err := r.Cycle(context.Background(), []servo.Request{{ID: 1, Bus: 1}, {ID: 2, Bus: 9}})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestRouterPartialFailureKeepsOtherBuses(t *testing.T) {
	bad := mock.New()
	bad.Err = errors.New("port gone")
	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{
		1: mock.New().Live(1, 1),
		2: bad,
	}, 1)
	require.NoError(t, err)

	res, err := r.Cycle(context.Background(), transport.Queries(servo.BusMap{1: {1}, 2: {2}}.Targets()))
	require.NoError(t, err)
	assert.Len(t, res, 1)

	_, err = r.Cycle(context.Background(), []servo.Request{{ID: 2, Bus: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}

func TestRouterCloseClosesAll(t *testing.T) {
	b1, b2 := mock.New(), mock.New()
	r, err := transport.NewRouter(map[servo.Bus]transport.Transport{1: b1, 2: b2}, 1)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Equal(t, 1, b1.Closed())
	assert.Equal(t, 1, b2.Closed())
}

func TestNewRouterValidation(t *testing.T) {
	_, err := transport.NewRouter(nil, 1)
	require.Error(t, err)

	_, err = transport.NewRouter(map[servo.Bus]transport.Transport{1: mock.New()}, 3)
	require.Error(t, err)
}
