package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trade_market/internal/domain/value"
)

func TestHubDeliver(t *testing.T) {
	rq := require.New(t)

	hub := NewHub()
	alice := newClient(nil, uuid.New())
	bob := newClient(nil, uuid.New())

	hub.attach(alice)
	hub.attach(bob)
	defer hub.Close()

	topic := value.TradeTopic(uuid.New())
	hub.subscribe(alice, topic)
	hub.subscribe(bob, topic)

	rq.Equal(2, hub.Deliver(Envelope{Topic: topic, Frame: []byte(`{}`)}))
	rq.Equal(1, hub.Deliver(Envelope{ConnID: bob.ID, Frame: []byte(`{}`)}))

	hub.unsubscribe(alice, topic)
	rq.Equal(1, hub.Deliver(Envelope{Topic: topic, Frame: []byte(`{}`)}))

	rq.True(hub.detach(bob))
	rq.False(hub.detach(bob))
	rq.Equal(0, hub.Deliver(Envelope{Topic: topic, Frame: []byte(`{}`)}))
	rq.Len(hub.Clients(), 1)
}

func TestHubDropsSlowClient(t *testing.T) {
	rq := require.New(t)

	hub := NewHub()
	slow := newClient(nil, uuid.New())
	hub.attach(slow)

	for range sendBufferSize {
		rq.Equal(1, hub.Deliver(Envelope{ConnID: slow.ID, Frame: []byte(`{}`)}))
	}

	rq.Equal(0, hub.Deliver(Envelope{ConnID: slow.ID, Frame: []byte(`{}`)}))
	rq.Empty(hub.Clients())

	select {
	case <-slow.done:
	default:
		rq.Fail("slow client was not closed")
	}
}

func TestGatewayPushToUser(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	hub := NewHub()
	registry := NewMemoryRegistry()
	gateway := NewGateway(registry, hub, NewLocalBroker(hub))

	online := newClient(nil, uuid.New())
	gateway.connect(ctx, online)

	rq.True(gateway.PushToUser(ctx, online.UserID, value.EventNotification, map[string]string{"content": "hi"}))
	rq.False(gateway.PushToUser(ctx, uuid.New(), value.EventNotification, nil))

	select {
	case raw := <-online.send:
		var frame struct {
			Event string            `json:"event"`
			Data  map[string]string `json:"data"`
		}
		rq.NoError(json.Unmarshal(raw, &frame))
		rq.Equal(value.EventNotification.String(), frame.Event)
		rq.Equal("hi", frame.Data["content"])
	case <-time.After(time.Second):
		rq.Fail("frame was not delivered")
	}

	gateway.disconnect(ctx, online)
	rq.False(gateway.PushToUser(ctx, online.UserID, value.EventNotification, nil))
}
