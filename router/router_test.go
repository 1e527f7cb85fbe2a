package router

import (
	"context"
	"testing"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	typ      bus.Type
	resource string
	result   string
	err      error
}

func (s *stubHandler) Type() bus.Type   { return s.typ }
func (s *stubHandler) Resource() string { return s.resource }
func (s *stubHandler) Handle(context.Context, bus.BusMessage) (string, error) {
	return s.result, s.err
}

func TestRouteSelectsByTypeAndResource(t *testing.T) {
	users := &stubHandler{typ: bus.TypeData, resource: "Users", result: "users-result"}
	health := &stubHandler{typ: bus.TypeInfra, resource: "Health", result: "health-result"}
	r, err := New(users, health)
	require.NoError(t, err)

	result, err := r.Route(context.Background(), bus.BusMessage{Type: bus.TypeData, Resource: "Users"})
	require.NoError(t, err)
	assert.Equal(t, "users-result", result)

	result, err = r.Route(context.Background(), bus.BusMessage{Type: bus.TypeInfra, Resource: "Health"})
	require.NoError(t, err)
	assert.Equal(t, "health-result", result)
}

func TestRouteResourceMatchIsCaseInsensitive(t *testing.T) {
	users := &stubHandler{typ: bus.TypeData, resource: "Users", result: "ok"}
	r, err := New(users)
	require.NoError(t, err)

	result, err := r.Route(context.Background(), bus.BusMessage{Type: bus.TypeData, Resource: "users"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRouteNoMatchIsServiceNotFound(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Route(context.Background(), bus.BusMessage{Type: bus.TypeData, Resource: "Ghost"})
	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, "SERVICE_NOT_FOUND", ae.Code)
	assert.Equal(t, errs.KindNotFound, ae.Kind)
}

func TestRouteDoesNotMatchAcrossTypes(t *testing.T) {
	users := &stubHandler{typ: bus.TypeData, resource: "Users", result: "ok"}
	r, err := New(users)
	require.NoError(t, err)

	_, err = r.Route(context.Background(), bus.BusMessage{Type: bus.TypeInfra, Resource: "Users"})
	require.Error(t, err)
}

func TestNewRejectsDuplicateHandlers(t *testing.T) {
	a := &stubHandler{typ: bus.TypeData, resource: "Users"}
	b := &stubHandler{typ: bus.TypeData, resource: "users"}
	_, err := New(a, b)
	assert.Error(t, err)
}

func TestRouteForwardsHandlerError(t *testing.T) {
	boom := &stubHandler{typ: bus.TypeData, resource: "Users", err: errs.BadRequest("BAD", "nope")}
	r, err := New(boom)
	require.NoError(t, err)

	_, err = r.Route(context.Background(), bus.BusMessage{Type: bus.TypeData, Resource: "Users"})
	require.Error(t, err)
	ae, _ := errs.As(err)
	assert.Equal(t, "BAD", ae.Code)
}
