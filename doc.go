// Package busrpc is a small layer for building request/reply microservices
// over a message broker. It turns an AMQP queue into an RPC endpoint with
// correlated responses, timeouts, and typed errors.
//
// A producer sends a BusMessage and awaits a correlated RpcEnvelope reply
// on a temporary queue. A consumer declares a durable queue, routes each
// delivery to the handler registered for the message's (type, resource)
// pair, and always replies — a malformed delivery or a handler failure
// becomes an error envelope rather than a dead consumer.
//
// See router.Router for how handlers are selected, handler.CRUDHandler for
// the generic entity handler, and producer.Producer / consumer.Consumer for
// the two sides of the wire.
package busrpc
