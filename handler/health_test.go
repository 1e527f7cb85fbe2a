package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandlerIdentity(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, nil)
	assert.Equal(t, bus.TypeInfra, h.Type())
	assert.Equal(t, "Health", h.Resource())
}

func TestHealthCheckOK(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, nil)
	result, err := h.Handle(context.Background(), bus.BusMessage{Action: "CHECK"})
	require.NoError(t, err)

	var snap HealthSnapshot
	require.NoError(t, json.Unmarshal([]byte(result), &snap))
	assert.Equal(t, StatusHealthy, snap.Status)
	require.NotNil(t, snap.DB)
	assert.Equal(t, StatusHealthy, *snap.DB)
}

func TestHealthCheckCannotConnectIsDegraded(t *testing.T) {
	h := NewHealthHandler(&fakePinger{err: &CannotConnectError{Cause: errors.New("refused")}}, nil)
	result, err := h.Handle(context.Background(), bus.BusMessage{Action: "CHECK"})
	require.NoError(t, err)

	var snap HealthSnapshot
	require.NoError(t, json.Unmarshal([]byte(result), &snap))
	assert.Equal(t, StatusHealthy, snap.Status)
	require.NotNil(t, snap.DB)
	assert.Equal(t, StatusDegraded, *snap.DB)
}

func TestHealthCheckUnexpectedFailureIsUnhealthy(t *testing.T) {
	h := NewHealthHandler(&fakePinger{err: errors.New("boom")}, nil)
	result, err := h.Handle(context.Background(), bus.BusMessage{Action: "CHECK"})
	require.NoError(t, err)

	var snap HealthSnapshot
	require.NoError(t, json.Unmarshal([]byte(result), &snap))
	assert.Equal(t, StatusUnhealthy, snap.Status)
	require.NotNil(t, snap.DB)
	assert.Equal(t, StatusUnhealthy, *snap.DB)
}

func TestHealthCheckNeverPropagatesError(t *testing.T) {
	h := NewHealthHandler(&panickingPinger{}, nil)
	_, err := h.Handle(context.Background(), bus.BusMessage{Action: "CHECK"})
	assert.NoError(t, err)
}

type panickingPinger struct{}

func (p *panickingPinger) Ping(context.Context) error { panic("connection pool exploded") }

func TestHealthUnknownAction(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, nil)
	_, err := h.Handle(context.Background(), bus.BusMessage{Action: "DESTROY"})
	require.Error(t, err)
}
