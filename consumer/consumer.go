// Package consumer implements the long-lived worker loop: receive a
// BusMessage delivery, decode it, route it to a handler, and always reply
// — a malformed delivery or a handler failure becomes an error envelope,
// never a dead consumer.
package consumer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/mrjvadi/busrpc/internal/amqpx"
	"github.com/mrjvadi/busrpc/internal/log"
	"github.com/mrjvadi/busrpc/internal/metrics"
	"github.com/mrjvadi/busrpc/router"
)

// Consumer is one worker instance, bound to a single queue and router.
type Consumer struct {
	settings    amqpx.Settings
	queueName   string
	consumerTag string
	maxConcurrency int
	replyTimeout time.Duration

	router  *router.Router
	log     log.Logger
	metrics *metrics.Metrics

	dialFn func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error)

	mu   sync.Mutex
	conn amqpx.Connection
	ch   amqpx.Channel
}

// Option configures a Consumer at construction time.
type Option func(*Consumer)

// WithLogger injects the structured logger; defaults to a no-op logger.
func WithLogger(l log.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics injects the Prometheus collectors; nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) { c.metrics = m }
}

// WithMaxConcurrency bounds how many deliveries are processed at once.
func WithMaxConcurrency(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithReplyTimeout bounds how long handling a single delivery may take: the
// handler call and the reply publish share this one deadline, independent
// of the consumer's own cancellation.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

// withDialer overrides how the consumer opens its broker connection; it is
// unexported and used by this package's tests.
func withDialer(fn func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error)) Option {
	return func(c *Consumer) { c.dialFn = fn }
}

// New builds a Consumer bound to queueName and r. Call Run to connect and
// start consuming; Run blocks until ctx is cancelled or a connection
// failure occurs.
func New(settings amqpx.Settings, queueName string, r *router.Router, opts ...Option) *Consumer {
	c := &Consumer{
		settings:       settings,
		queueName:      queueName,
		consumerTag:    defaultConsumerTag(queueName),
		maxConcurrency: 16,
		replyTimeout:   5 * time.Second,
		router:         r,
		log:            log.NewNop(),
		dialFn:         amqpx.Dial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultConsumerTag(queue string) string {
	host, _ := os.Hostname()
	if host == "" {
		host = "consumer"
	}
	return fmt.Sprintf("%s-%s-%d", host, queue, os.Getpid())
}

// connect opens the connection/channel and declares the request queue:
// durable, non-exclusive, non-auto-delete. A failure here, or in
// registering the receiver in Run, is the only fatal path — the caller
// (the process host) is expected to restart.
func (c *Consumer) connect() error {
	conn, ch, err := c.dialFn(c.settings)
	if err != nil {
		return fmt.Errorf("consumer: connect: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("consumer: declare queue %q: %w", c.queueName, err)
	}
	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()
	return nil
}

// Run connects, registers an asynchronous receiver on the queue, and
// processes deliveries until ctx is cancelled. Connection failures are
// logged and returned so the process host decides whether to restart;
// any other failure — decode, routing, handler — never leaves this loop
// and is always converted into a reply.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.connect(); err != nil {
		c.log.Error("failed to connect to broker", log.Error(err))
		return err
	}
	defer func() {
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	}()

	deliveries, err := c.ch.Consume(c.queueName, c.consumerTag, true, false, false, false, nil)
	if err != nil {
		c.log.Error("failed to start consuming", log.Error(err))
		return fmt.Errorf("consumer: consume: %w", err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxConcurrency)

	for {
		select {
		case <-ctx.Done():
			_ = c.ch.Cancel(c.consumerTag, false)
			wg.Wait()
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				wg.Wait()
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handleDelivery(d)
			}(delivery)
		}
	}
}

// handleDelivery is the per-delivery pipeline. It never panics out and
// never returns without attempting a reply when one is owed.
func (c *Consumer) handleDelivery(d amqp.Delivery) {
	replyCtx, cancel := context.WithTimeout(context.Background(), c.replyTimeout)
	defer cancel()

	start := time.Now()
	env, resource, action := c.process(replyCtx, d)
	c.metrics.ObserveHandler(resource, action, time.Since(start).Seconds())

	if d.ReplyTo == "" {
		c.log.Warn("delivery has no replyTo, dropping reply", log.String("correlationId", d.CorrelationId))
		return
	}

	status := "ok"
	if !env.Ok {
		status = "error"
	}
	raw, err := env.Encode()
	if err != nil {
		c.log.Error("failed to encode reply envelope", log.Error(err))
		return
	}
	pub := amqpx.ReplyPublishing(raw, d.CorrelationId, status)
	if err := c.ch.PublishWithContext(replyCtx, "", d.ReplyTo, false, false, pub); err != nil {
		c.log.Error("failed to publish reply", log.Error(err), log.String("replyTo", d.ReplyTo))
		return
	}
	c.metrics.IncReply(status)
}

// process decodes and routes one delivery, recovering from a panic in a
// handler so a single poisoned message can never take the consumer down.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) (env bus.RpcEnvelope, resource, action string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panicked", log.String("panic", fmt.Sprint(r)))
			env = bus.Failure(errs.Internal("UNHANDLED", "handler panicked").WithDetails(fmt.Sprint(r)))
		}
	}()

	msg, err := bus.Decode(d.Body)
	if err != nil {
		c.log.Warn("failed to decode delivery", log.Error(err))
		return bus.Failure(errs.BadRequest("DESERIALIZE_ERROR", "Invalid payload.").WithDetails(err.Error())), "", ""
	}
	resource, action = msg.Resource, msg.UpperAction()

	result, err := c.router.Route(ctx, msg)
	if err != nil {
		if ae, ok := errs.As(err); ok {
			return bus.Failure(ae), resource, action
		}
		return bus.Failure(errs.Internal("ROUTING_ERROR", "routing failed").WithDetails(err.Error())), resource, action
	}
	return bus.Success(result), resource, action
}
