// Package handler holds the Handler interface every bus service
// implements, plus the two handlers the library ships: a generic CRUD
// handler bound to a store.Store[T], and a health handler bound to a
// connectivity probe.
package handler

import (
	"context"

	"github.com/mrjvadi/busrpc/bus"
)

// Handler is addressed uniquely by (Type, Resource); Handle dispatches on
// the message's Action and returns the JSON string result the router
// forwards verbatim into a success envelope.
type Handler interface {
	Type() bus.Type
	Resource() string
	Handle(ctx context.Context, msg bus.BusMessage) (string, error)
}
