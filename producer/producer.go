// Package producer implements the gateway side of the RPC contract: publish
// a BusMessage to a worker queue on a temporary, per-call reply queue, and
// await the correlated RpcEnvelope or time out.
package producer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/mrjvadi/busrpc/internal/amqpx"
	"github.com/mrjvadi/busrpc/internal/log"
	"github.com/mrjvadi/busrpc/internal/metrics"
)

// Call is the correlation record returned by SendMessage: everything needed
// to await the matching reply and, afterwards, clean up the reply queue.
type Call struct {
	CorrelationID string
	ReplyQueue    string
}

// Producer issues RPC calls over a shared broker connection/channel. Many
// calls may be in flight concurrently; each owns its own exclusive,
// auto-delete reply queue and is matched on CorrelationID, so there is no
// cross-talk between callers sharing the same Producer.
type Producer struct {
	settings amqpx.Settings
	log      log.Logger
	metrics  *metrics.Metrics

	dialFn func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error)

	mu   sync.Mutex
	conn amqpx.Connection
	ch   amqpx.Channel

	timerPool sync.Pool
}

// Option configures a Producer at construction time.
type Option func(*Producer)

// WithLogger injects the structured logger; defaults to a no-op logger.
func WithLogger(l log.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics injects the Prometheus collectors; nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Producer) { p.metrics = m }
}

// withDialer overrides how the producer opens its broker connection;
// exported only to this package's tests.
func withDialer(fn func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error)) Option {
	return func(p *Producer) { p.dialFn = fn }
}

// New builds a Producer bound to settings. The connection is opened lazily,
// on first call to SendMessage.
func New(settings amqpx.Settings, opts ...Option) *Producer {
	p := &Producer{
		settings: settings,
		log:      log.NewNop(),
		dialFn:   amqpx.Dial,
	}
	p.timerPool = sync.Pool{New: func() any { return time.NewTimer(time.Hour) }}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Producer) getTimer(d time.Duration) *time.Timer {
	tm := p.timerPool.Get().(*time.Timer)
	if !tm.Stop() {
		select {
		case <-tm.C:
		default:
		}
	}
	tm.Reset(d)
	return tm
}

func (p *Producer) putTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	p.timerPool.Put(t)
}

// ensureOpen returns the shared channel, (re-)opening the connection first
// if it has never been opened or has since been closed.
func (p *Producer) ensureOpen() (amqpx.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	conn, ch, err := p.dialFn(p.settings)
	if err != nil {
		return nil, fmt.Errorf("producer: connect: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// SendMessage publishes msg to queue on the default exchange, using a fresh
// server-named, exclusive, auto-delete reply queue for the correlated
// response. queue and msg.Encode() must be non-empty.
func (p *Producer) SendMessage(ctx context.Context, queue string, msg bus.BusMessage) (Call, error) {
	if queue == "" {
		return Call{}, errs.BadRequest("QUEUE_MANDATORY", "queue name is required")
	}
	body, err := msg.Encode()
	if err != nil {
		return Call{}, errs.Internal("SERIALIZE_ERROR", "failed to encode request").WithDetails(err.Error())
	}
	if len(body) == 0 {
		return Call{}, errs.BadRequest("DATA_MANDATORY", "request body is required")
	}

	ch, err := p.ensureOpen()
	if err != nil {
		return Call{}, errs.Internal("BROKER_UNAVAILABLE", "failed to open broker channel").WithDetails(err.Error())
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return Call{}, errs.Internal("REPLY_QUEUE_DECLARE_FAILED", "failed to declare reply queue").WithDetails(err.Error())
	}

	correlationID := uuid.NewString()
	pub := amqpx.RequestPublishing(body, correlationID, q.Name)
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		_, _ = ch.QueueDelete(q.Name, false, false, false)
		return Call{}, errs.Internal("PUBLISH_FAILED", "failed to publish request").WithDetails(err.Error())
	}

	p.log.Debug("sent rpc request",
		log.String("queue", queue), log.String("correlationId", correlationID), log.String("replyQueue", q.Name))
	return Call{CorrelationID: correlationID, ReplyQueue: q.Name}, nil
}

// AwaitResponse subscribes to call.ReplyQueue and blocks until a delivery
// whose CorrelationId matches call.CorrelationID arrives, ctx is cancelled,
// or timeout elapses (timeout<=0 uses the producer's configured default).
// Once the broker channel is open, the reply queue is deleted on every exit
// path, best-effort.
func (p *Producer) AwaitResponse(ctx context.Context, call Call, timeout time.Duration) (string, error) {
	if call.CorrelationID == "" || call.ReplyQueue == "" {
		return "", errs.Internal("INVALID_CALL", "correlationId and replyQueue are required")
	}
	if timeout <= 0 {
		timeout = p.settings.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ch, err := p.ensureOpen()
	if err != nil {
		return "", errs.Internal("BROKER_UNAVAILABLE", "failed to open broker channel").WithDetails(err.Error())
	}

	consumerTag := "rpc-" + call.CorrelationID
	defer p.cleanup(ch, consumerTag, call.ReplyQueue)

	deliveries, err := ch.Consume(call.ReplyQueue, consumerTag, false, true, false, false, nil)
	if err != nil {
		return "", errs.Internal("REPLY_SUBSCRIBE_FAILED", "failed to subscribe to reply queue").WithDetails(err.Error())
	}

	tm := p.getTimer(timeout)
	defer p.putTimer(tm)

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return "", errs.GatewayTimeout("TIMEOUT", "rpc call cancelled").WithDetails(ctx.Err().Error())

		case <-tm.C:
			return "", errs.GatewayTimeout("TIMEOUT", "no reply received within timeout")

		case d, ok := <-deliveries:
			if !ok {
				return "", errs.GatewayTimeout("TIMEOUT", "reply channel closed before a response arrived")
			}
			if d.CorrelationId != call.CorrelationID {
				_ = d.Ack(false)
				continue
			}
			_ = d.Ack(false)
			p.metrics.ObserveRPC(time.Since(start).Seconds())
			return decodeReply(d.Body)
		}
	}
}

// decodeReply turns a reply delivery's body into a result string or an
// *errs.AppError, falling back to the raw body when it doesn't parse as an
// RpcEnvelope so a non-conforming peer doesn't sink the call.
func decodeReply(raw []byte) (string, error) {
	env, err := bus.DecodeEnvelope(raw)
	if err != nil {
		return string(raw), nil
	}
	if env.Ok {
		if env.Data == nil {
			return "", nil
		}
		return *env.Data, nil
	}
	return "", env.AsAppError()
}

// cleanup best-effort cancels the reply subscription and deletes the
// temporary reply queue; failures are logged at debug only, never surfaced,
// so they cannot mask the call's primary outcome.
func (p *Producer) cleanup(ch amqpx.Channel, consumerTag, replyQueue string) {
	if err := ch.Cancel(consumerTag, false); err != nil {
		p.log.Debug("failed to cancel reply consumer", log.String("consumerTag", consumerTag), log.Error(err))
	}
	if _, err := ch.QueueDelete(replyQueue, false, false, false); err != nil {
		p.log.Debug("failed to delete reply queue", log.String("replyQueue", replyQueue), log.Error(err))
	}
}

// Call is a convenience wrapper combining SendMessage and AwaitResponse for
// the common case of a simple request/reply round trip.
func (p *Producer) Call(ctx context.Context, queue string, msg bus.BusMessage, timeout time.Duration) (string, error) {
	call, err := p.SendMessage(ctx, queue, msg)
	if err != nil {
		return "", err
	}
	return p.AwaitResponse(ctx, call, timeout)
}

// Close closes the shared connection, if open.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		err := p.conn.Close()
		p.conn, p.ch = nil, nil
		return err
	}
	return nil
}
