package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"trade_market/pkg/logx"
)

// Broker carries envelopes to every process that may hold the target
// connection.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	Run(ctx context.Context) error
}

// LocalBroker доставляет сразу в хаб своего процесса.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, env Envelope) error {
	b.hub.Deliver(env)
	return nil
}

func (b *LocalBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

const defaultBrokerChannel = "trade_market:realtime"

// RedisBroker рассылает конверты через Redis pub/sub; каждый процесс
// доставляет их своим соединениям.
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
}

func NewRedisBroker(client redis.UniversalClient, hub *Hub) *RedisBroker {
	return &RedisBroker{
		client:  client,
		channel: defaultBrokerChannel,
		hub:     hub,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis.Publish: %w", err)
	}

	return nil
}

func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("pubsub.Receive: %w", err)
	}

	logger(ctx).Info("realtime broker subscribed", slog.String("channel", b.channel))

	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger(ctx).Error("json.Unmarshal", logx.Error(err))
				continue
			}

			b.hub.Deliver(env)
		}
	}
}
