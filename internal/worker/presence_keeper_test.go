package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trade_market/internal/realtime"
)

type staticConnections []*realtime.Client

func (s staticConnections) Clients() []*realtime.Client {
	return s
}

type countingRegistry struct {
	mu        sync.Mutex
	refreshed map[string]int
	fail      string
}

func (r *countingRegistry) Refresh(_ context.Context, _ uuid.UUID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refreshed[connID]++

	if connID == r.fail {
		return errors.New("redis is down")
	}

	return nil
}

func (r *countingRegistry) count(connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.refreshed[connID]
}

func TestPresenceKeeper(t *testing.T) {
	t.Parallel()

	rq := require.New(t)

	conns := staticConnections{
		{ID: "c1", UserID: uuid.New()},
		{ID: "c2", UserID: uuid.New()},
	}
	registry := &countingRegistry{refreshed: map[string]int{}, fail: "c1"}

	keeper := NewPresenceKeeper(conns, registry, time.Minute).WithInterval(10 * time.Millisecond)

	rq.NoError(keeper.Start(context.Background()))
	rq.Error(keeper.Start(context.Background()))
	rq.True(keeper.IsRunning())

	// Ошибка по одному соединению не мешает обновлять остальные.
	rq.Eventually(func() bool {
		return registry.count("c1") >= 2 && registry.count("c2") >= 2
	}, time.Second, 5*time.Millisecond)

	keeper.Stop()
	rq.False(keeper.IsRunning())

	stopped := registry.count("c2")
	time.Sleep(30 * time.Millisecond)
	rq.Equal(stopped, registry.count("c2"))
}

func TestPresenceKeeperRunStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keeper := NewPresenceKeeper(staticConnections{}, &countingRegistry{refreshed: map[string]int{}}, time.Minute)

	require.ErrorIs(t, keeper.Run(ctx), context.Canceled)
}
