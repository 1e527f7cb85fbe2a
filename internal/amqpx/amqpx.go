// Package amqpx is the thin AMQP 0.9.1 plumbing shared by the consumer and
// the producer: dialing, a minimal Channel interface so both sides are
// testable against a fake, and the connection settings both bind.
package amqpx

import (
	"context"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Settings are the broker connection settings bound at startup. Timeout is
// the default RPC wait used by the producer when a caller doesn't
// override it.
type Settings struct {
	Hostname string        `env:"BROKER_HOST,required"`
	Username string        `env:"BROKER_USER,required"`
	Password string        `env:"BROKER_PASSWORD,required"`
	Timeout  time.Duration `env:"BROKER_TIMEOUT" envDefault:"30s"`
}

// URI builds the amqp:// DSN amqp.Dial expects.
func (s Settings) URI() string {
	return fmt.Sprintf("amqp://%s:%s@%s/",
		url.QueryEscape(s.Username), url.QueryEscape(s.Password), s.Hostname)
}

// Channel is the subset of *amqp091.Channel the consumer and producer use.
// A *amqp.Channel satisfies it structurally; tests substitute a fake.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Connection is the subset of *amqp091.Connection used to obtain a Channel.
type Connection interface {
	Channel() (*amqp.Channel, error)
	IsClosed() bool
	Close() error
}

// Dial opens a connection and its first channel using the given settings.
func Dial(settings Settings) (Connection, Channel, error) {
	conn, err := amqp.Dial(settings.URI())
	if err != nil {
		return nil, nil, fmt.Errorf("amqpx: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqpx: open channel: %w", err)
	}
	return conn, ch, nil
}

// RequestPublishing is the producer's outgoing message properties: JSON
// over UTF-8, carrying the correlation id and the reply queue to answer on.
func RequestPublishing(body []byte, correlationID, replyTo string) amqp.Publishing {
	return amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		CorrelationId:   correlationID,
		ReplyTo:         replyTo,
		Timestamp:       time.Now(),
		Body:            body,
	}
}

// ReplyPublishing is the consumer's outgoing reply properties: same
// correlation id, plus an x-status header so a gateway can distinguish an
// ok/error reply without parsing the body.
func ReplyPublishing(body []byte, correlationID, status string) amqp.Publishing {
	return amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		CorrelationId:   correlationID,
		Timestamp:       time.Now(),
		Headers:         amqp.Table{"x-status": status},
		Body:            body,
	}
}
