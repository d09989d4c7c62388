package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRedisBroker(t *testing.T) {
	rq := require.New(t)
	client := requireRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	receiver := newClient(nil, uuid.New())
	hub.attach(receiver)

	broker := NewRedisBroker(client, hub)

	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()

	// Publish until the subscription is live: pub/sub drops messages sent
	// before it.
	rq.Eventually(func() bool {
		rq.NoError(broker.Publish(ctx, Envelope{ConnID: receiver.ID, Frame: []byte(`{"event":"pong"}`)}))

		select {
		case raw := <-receiver.send:
			return string(raw) == `{"event":"pong"}`
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	rq.NoError(<-done)
}
