// Package amqptest is an in-memory fake of amqpx.Channel used by the
// consumer and producer test suites; it never talks to a real broker.
package amqptest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishedMessage records one call to PublishWithContext.
type PublishedMessage struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

// Channel is a fake amqpx.Channel: declared/deleted queues and published
// messages are recorded, and tests push deliveries into a consumer with
// Deliver.
type Channel struct {
	mu sync.Mutex

	DeclareErr error
	ConsumeErr error
	PublishErr error

	queues     map[string]struct{}
	anonSeq    int
	Deleted    []string
	Published  []PublishedMessage
	consumers  map[string]chan amqp.Delivery
	cancelled  map[string]bool
	closed     bool
}

// New builds an empty fake channel.
func New() *Channel {
	return &Channel{
		queues:    make(map[string]struct{}),
		consumers: make(map[string]chan amqp.Delivery),
		cancelled: make(map[string]bool),
	}
}

func (c *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if c.DeclareErr != nil {
		return amqp.Queue{}, c.DeclareErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.anonSeq++
		name = fmt.Sprintf("amq.gen-fake-%d", c.anonSeq)
	}
	c.queues[name] = struct{}{}
	return amqp.Queue{Name: name}, nil
}

func (c *Channel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queues, name)
	c.Deleted = append(c.Deleted, name)
	return 0, nil
}

func (c *Channel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if c.ConsumeErr != nil {
		return nil, c.ConsumeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if consumer == "" {
		consumer = queue
	}
	ch := make(chan amqp.Delivery, 64)
	c.consumers[consumer] = ch
	return ch, nil
}

func (c *Channel) Cancel(consumer string, noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.consumers[consumer]; ok {
		close(ch)
		delete(c.consumers, consumer)
	}
	c.cancelled[consumer] = true
	return nil
}

func (c *Channel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Published = append(c.Published, PublishedMessage{Exchange: exchange, Key: key, Msg: msg})
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed reports whether Close has been called, mirroring
// *amqp091.Channel.IsClosed so the producer's reopen-if-closed check can be
// exercised against the fake.
func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Deliver pushes a delivery to the named consumer tag (or queue name, when
// Consume was called with an empty tag).
func (c *Channel) Deliver(consumer string, d amqp.Delivery) {
	c.mu.Lock()
	ch := c.consumers[consumer]
	c.mu.Unlock()
	ch <- d
}

// QueueExists reports whether a queue with that name is currently declared
// and has not been deleted.
func (c *Channel) QueueExists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.queues[name]
	return ok
}

// Acker is a fake amqp.Acknowledger that counts Ack/Nack/Reject calls so
// tests can assert a delivery was acknowledged exactly once.
type Acker struct {
	Acked   int32
	Nacked  int32
	Rejected int32
}

func (a *Acker) Ack(tag uint64, multiple bool) error {
	atomic.AddInt32(&a.Acked, 1)
	return nil
}

func (a *Acker) Nack(tag uint64, multiple, requeue bool) error {
	atomic.AddInt32(&a.Nacked, 1)
	return nil
}

func (a *Acker) Reject(tag uint64, requeue bool) error {
	atomic.AddInt32(&a.Rejected, 1)
	return nil
}
