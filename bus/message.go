// Package bus defines the wire types shared by producers and consumers: the
// BusMessage request envelope and the RpcEnvelope/RpcError reply envelope.
package bus

import (
	"encoding/json"
	"strings"
)

// Type is the coarse handler category a BusMessage is addressed to.
type Type string

const (
	TypeData  Type = "DATA"
	TypeApp   Type = "APP"
	TypeInfra Type = "INFRA"
)

// BusMessage is the request envelope. A handler is addressed uniquely by
// (Type, Resource); Action selects the operation within that handler and is
// compared case-insensitively after uppercasing.
type BusMessage struct {
	Type     Type    `json:"type"`
	Resource string  `json:"resource"`
	Action   string  `json:"action"`
	ID       *int64  `json:"id,omitempty"`
	Data     *string `json:"data,omitempty"`
}

// UpperAction returns the action uppercased, the canonical form handlers
// switch on.
func (m BusMessage) UpperAction() string {
	return strings.ToUpper(m.Action)
}

// Decode parses raw JSON bytes into a BusMessage.
func Decode(raw []byte) (BusMessage, error) {
	var msg BusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return BusMessage{}, err
	}
	return msg, nil
}

// Encode serializes the message to JSON.
func (m BusMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
