// Package httpshape renders an *errs.AppError into the JSON object a
// gateway layer embedding busrpc can hand back to its own HTTP caller,
// without reaching into the error taxonomy's internals.
package httpshape

import "github.com/mrjvadi/busrpc/errs"

// Shape is the gateway-facing failure body: { message, exception?, traceId? }.
type Shape struct {
	Message   string `json:"message"`
	Exception string `json:"exception,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// From renders err for an HTTP caller. exception is populated only when
// production is false, so a deployed gateway never leaks internal detail;
// traceID is the caller's own correlation context (typically the AMQP
// correlationId) and is carried through unchanged, empty when unknown.
func From(err *errs.AppError, production bool, traceID string) Shape {
	shape := Shape{Message: err.Message, TraceID: traceID}
	if !production {
		shape.Exception = err.Error()
	}
	return shape
}
