// Package router matches an incoming BusMessage to exactly one registered
// handler and forwards it unchanged, without interpreting Action itself.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/mrjvadi/busrpc/handler"
)

type key struct {
	typ      bus.Type
	resource string
}

func keyOf(typ bus.Type, resource string) key {
	return key{typ: typ, resource: strings.ToUpper(resource)}
}

// Router is a read-only, concurrency-safe lookup table built once at
// startup. It never mutates after construction, so concurrent Route calls
// need no locking.
type Router struct {
	handlers map[key]handler.Handler
}

// New builds a Router from a finite set of handlers. A duplicate
// (type, resource) pair is a startup misconfiguration and fails fast
// rather than being silently shadowed.
func New(handlers ...handler.Handler) (*Router, error) {
	table := make(map[key]handler.Handler, len(handlers))
	for _, h := range handlers {
		k := keyOf(h.Type(), h.Resource())
		if existing, ok := table[k]; ok {
			return nil, fmt.Errorf(
				"router: duplicate handler for (%s, %s): %T and %T",
				h.Type(), h.Resource(), existing, h,
			)
		}
		table[k] = h
	}
	return &Router{handlers: table}, nil
}

// Route selects the unique handler for msg's (Type, Resource) and forwards
// msg unchanged, returning the handler's result verbatim. Zero matches
// yields NotFound{SERVICE_NOT_FOUND}; Router does not look at Action.
func (r *Router) Route(ctx context.Context, msg bus.BusMessage) (string, error) {
	h, ok := r.handlers[keyOf(msg.Type, msg.Resource)]
	if !ok {
		return "", errs.NotFound("SERVICE_NOT_FOUND", fmt.Sprintf(
			"no handler registered for %s/%s", msg.Type, msg.Resource,
		))
	}
	return h.Handle(ctx, msg)
}
