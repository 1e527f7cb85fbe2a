package bus

import (
	"encoding/json"

	"github.com/mrjvadi/busrpc/errs"
)

// RpcError is the wire shape of a remote failure: a short machine token, a
// human message, and optional longer technical detail.
type RpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RpcEnvelope is the reply envelope. Exactly one of Data/Error is
// meaningful, selected by Ok.
type RpcEnvelope struct {
	Ok    bool      `json:"ok"`
	Data  *string   `json:"data,omitempty"`
	Error *RpcError `json:"error,omitempty"`
}

// Success builds an ok=true envelope carrying the handler's string result.
func Success(data string) RpcEnvelope {
	return RpcEnvelope{Ok: true, Data: &data}
}

// Failure builds an ok=false envelope from an AppError.
func Failure(err *errs.AppError) RpcEnvelope {
	return RpcEnvelope{
		Ok: false,
		Error: &RpcError{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	}
}

// Encode serializes the envelope to JSON.
func (e RpcEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses raw JSON bytes into an RpcEnvelope.
func DecodeEnvelope(raw []byte) (RpcEnvelope, error) {
	var env RpcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return RpcEnvelope{}, err
	}
	return env, nil
}

// AsAppError reconstructs an *errs.AppError of KindRpc from a failed
// envelope, so a producer-side caller sees one consistent error
// abstraction regardless of where the fault originated.
func (e RpcEnvelope) AsAppError() *errs.AppError {
	if e.Ok || e.Error == nil {
		return nil
	}
	return errs.Remote(e.Error.Code, e.Error.Message, e.Error.Details)
}
