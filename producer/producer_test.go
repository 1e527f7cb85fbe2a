package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/mrjvadi/busrpc/internal/amqpx"
	"github.com/mrjvadi/busrpc/internal/amqpx/amqptest"
)

type fakeConn struct{ closed bool }

func (f *fakeConn) Channel() (*amqp.Channel, error) { return nil, errors.New("not implemented") }
func (f *fakeConn) IsClosed() bool                  { return f.closed }
func (f *fakeConn) Close() error                    { f.closed = true; return nil }

func newTestProducer(t *testing.T, ch *amqptest.Channel, opts ...Option) *Producer {
	t.Helper()
	baseOpts := append([]Option{
		withDialer(func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error) {
			return &fakeConn{}, ch, nil
		}),
	}, opts...)
	return New(amqpx.Settings{Hostname: "test", Timeout: time.Second}, baseOpts...)
}

func TestSendMessageDeclaresReplyQueueAndPublishes(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	call, err := p.SendMessage(context.Background(), "users.queue", bus.BusMessage{
		Type: bus.TypeData, Resource: "Users", Action: "CREATE", Data: strPtr(`{"name":"Ada"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, call.CorrelationID)
	assert.NotEmpty(t, call.ReplyQueue)
	assert.True(t, fake.QueueExists(call.ReplyQueue))

	require.Len(t, fake.Published, 1)
	pub := fake.Published[0]
	assert.Equal(t, "users.queue", pub.Key)
	assert.Equal(t, "", pub.Exchange)
	assert.Equal(t, call.CorrelationID, pub.Msg.CorrelationId)
	assert.Equal(t, call.ReplyQueue, pub.Msg.ReplyTo)
}

func TestSendMessageRejectsEmptyQueue(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	_, err := p.SendMessage(context.Background(), "", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "GET"})
	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindBadRequest, ae.Kind)
}

func TestAwaitResponseResolvesOnMatchingCorrelationID(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	call, err := p.SendMessage(context.Background(), "users.queue", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "CREATE"})
	require.NoError(t, err)

	env := bus.Success("8")
	raw, _ := env.Encode()

	go func() {
		time.Sleep(10 * time.Millisecond)
		// An unrelated delivery with a different correlation id must be
		// skipped, not mistaken for this call's reply.
		fake.Deliver("rpc-"+call.CorrelationID, amqp.Delivery{
			Acknowledger:  &amqptest.Acker{},
			CorrelationId: "someone-elses-call",
			Body:          raw,
		})
		fake.Deliver("rpc-"+call.CorrelationID, amqp.Delivery{
			Acknowledger:  &amqptest.Acker{},
			CorrelationId: call.CorrelationID,
			Body:          raw,
		})
	}()

	result, err := p.AwaitResponse(context.Background(), call, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "8", result)

	assert.Contains(t, fake.Deleted, call.ReplyQueue)
}

func TestAwaitResponseReturnsRemoteErrorAsAppError(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	call, err := p.SendMessage(context.Background(), "users.queue", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "GET", ID: int64Ptr(999)})
	require.NoError(t, err)

	errEnv := bus.RpcEnvelope{Ok: false, Error: &bus.RpcError{Code: "NOT_FOUND", Message: "Cannot find ressource"}}
	raw, _ := errEnv.Encode()

	go func() {
		time.Sleep(10 * time.Millisecond)
		fake.Deliver("rpc-"+call.CorrelationID, amqp.Delivery{
			Acknowledger:  &amqptest.Acker{},
			CorrelationId: call.CorrelationID,
			Body:          raw,
		})
	}()

	_, err = p.AwaitResponse(context.Background(), call, time.Second)
	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindRpc, ae.Kind)
	assert.Equal(t, "NOT_FOUND", ae.Code)
}

func TestAwaitResponseTimesOutWhenNoReplyArrives(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	call, err := p.SendMessage(context.Background(), "users.queue", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "GET", ID: int64Ptr(1)})
	require.NoError(t, err)

	start := time.Now()
	_, err = p.AwaitResponse(context.Background(), call, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindGatewayTimeout, ae.Kind)
	assert.Equal(t, "TIMEOUT", ae.Code)
	assert.Less(t, elapsed, time.Second, "timeout should fire close to the configured duration")

	assert.Contains(t, fake.Deleted, call.ReplyQueue)
}

func TestAwaitResponseCancelledByContext(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	call, err := p.SendMessage(context.Background(), "users.queue", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "GET", ID: int64Ptr(1)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = p.AwaitResponse(ctx, call, time.Minute)
	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindGatewayTimeout, ae.Kind)
}

func TestAwaitResponseRejectsEmptyCall(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	_, err := p.AwaitResponse(context.Background(), Call{}, time.Second)
	require.Error(t, err)
	ae, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindInternalServerError, ae.Kind)
}

func TestCallRoundTripsSendAndAwait(t *testing.T) {
	fake := amqptest.New()
	p := newTestProducer(t, fake)

	env := bus.Success(`{"status":"Healthy","db":"Healthy"}`)
	raw, _ := env.Encode()

	var correlationID string
	go func() {
		for i := 0; i < 50; i++ {
			time.Sleep(2 * time.Millisecond)
			if len(fake.Published) > 0 {
				correlationID = fake.Published[0].Msg.CorrelationId
				fake.Deliver("rpc-"+correlationID, amqp.Delivery{
					Acknowledger:  &amqptest.Acker{},
					CorrelationId: correlationID,
					Body:          raw,
				})
				return
			}
		}
	}()

	result, err := p.Call(context.Background(), "health.queue", bus.BusMessage{Type: bus.TypeInfra, Resource: "Health", Action: "CHECK"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"Healthy","db":"Healthy"}`, result)
}

func TestReusesOpenChannelAcrossCalls(t *testing.T) {
	fake := amqptest.New()
	dials := 0
	p := New(amqpx.Settings{Hostname: "test", Timeout: time.Second}, withDialer(func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error) {
		dials++
		return &fakeConn{}, fake, nil
	}))

	_, err := p.SendMessage(context.Background(), "q", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "LIST"})
	require.NoError(t, err)
	_, err = p.SendMessage(context.Background(), "q", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "LIST"})
	require.NoError(t, err)

	assert.Equal(t, 1, dials, "a second call must reuse the already-open channel")
}

func TestReopensChannelAfterClose(t *testing.T) {
	fake1 := amqptest.New()
	fake2 := amqptest.New()
	dials := 0
	p := New(amqpx.Settings{Hostname: "test", Timeout: time.Second}, withDialer(func(amqpx.Settings) (amqpx.Connection, amqpx.Channel, error) {
		dials++
		if dials == 1 {
			return &fakeConn{}, fake1, nil
		}
		return &fakeConn{}, fake2, nil
	}))

	_, err := p.SendMessage(context.Background(), "q", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "LIST"})
	require.NoError(t, err)

	_ = fake1.Close()

	_, err = p.SendMessage(context.Background(), "q", bus.BusMessage{Type: bus.TypeData, Resource: "Users", Action: "LIST"})
	require.NoError(t, err)
	assert.Equal(t, 2, dials, "a closed channel must be reopened on next use")
}

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64 { return &i }
