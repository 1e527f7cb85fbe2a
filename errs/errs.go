// Package errs defines the closed set of error kinds that may cross a bus
// boundary, each carrying a stable HTTP-style status code.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of failure categories a handler may raise.
type Kind string

const (
	KindBadRequest          Kind = "BAD_REQUEST"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindForbidden           Kind = "FORBIDDEN"
	KindNotFound            Kind = "NOT_FOUND"
	KindRequestTimeout      Kind = "REQUEST_TIMEOUT"
	KindTooManyRequests     Kind = "TOO_MANY_REQUESTS"
	KindInternalServerError Kind = "INTERNAL_SERVER_ERROR"
	KindGatewayTimeout      Kind = "GATEWAY_TIMEOUT"
	KindRpc                 Kind = "RPC"
)

// Status returns the HTTP-style status code associated with a kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return 400
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindRequestTimeout:
		return 408
	case KindTooManyRequests:
		return 429
	case KindGatewayTimeout:
		return 504
	case KindInternalServerError, KindRpc:
		return 500
	default:
		return 500
	}
}

// AppError is the in-process tagged-union failure. It is constructed at the
// point of failure and, at the consumer boundary, translated into an
// RpcEnvelope; it must never expose the underlying storage or transport
// error directly.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Details string
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP-style status for this error's kind.
func (e *AppError) Status() int { return e.Kind.Status() }

func new_(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func BadRequest(code, message string) *AppError         { return new_(KindBadRequest, code, message) }
func Unauthorized(code, message string) *AppError       { return new_(KindUnauthorized, code, message) }
func Forbidden(code, message string) *AppError          { return new_(KindForbidden, code, message) }
func NotFound(code, message string) *AppError           { return new_(KindNotFound, code, message) }
func RequestTimeout(code, message string) *AppError     { return new_(KindRequestTimeout, code, message) }
func TooManyRequests(code, message string) *AppError    { return new_(KindTooManyRequests, code, message) }
func Internal(code, message string) *AppError           { return new_(KindInternalServerError, code, message) }
func GatewayTimeout(code, message string) *AppError     { return new_(KindGatewayTimeout, code, message) }

// Remote reconstructs an AppError of KindRpc from a remote RpcError so that
// end-to-end callers observe a single consistent error abstraction
// regardless of where the fault originated.
func Remote(code, message, details string) *AppError {
	return &AppError{Kind: KindRpc, Code: code, Message: message, Details: details}
}

// WithDetails attaches technical detail text, returning the receiver for
// chaining at the construction site.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// As reports whether err is an *AppError, unwrapping like errors.As, and
// returns that *AppError. It exists so call sites that don't want to import "errors"
// for a single check can use errs.As directly.
func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
