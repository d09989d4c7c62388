package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trade_market/internal/realtime"
	"trade_market/pkg/contextx"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type connections interface {
	Clients() []*realtime.Client
}

type presenceRefresher interface {
	Refresh(ctx context.Context, userID uuid.UUID, connID string) error
}

// PresenceKeeper продлевает TTL присутствия для соединений этого процесса,
// иначе записи в общем реестре протухают у живых клиентов.
type PresenceKeeper struct {
	connections connections
	registry    presenceRefresher
	interval    time.Duration

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

// NewPresenceKeeper обновляет записи трижды за ttl.
func NewPresenceKeeper(connections connections, registry presenceRefresher, ttl time.Duration) *PresenceKeeper {
	return &PresenceKeeper{
		connections: connections,
		registry:    registry,
		interval:    ttl / 3,
	}
}

func (w *PresenceKeeper) WithInterval(interval time.Duration) *PresenceKeeper {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

func (w *PresenceKeeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("presence keeper is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(ctx).Error("presence keeper stopped", logx.Error(err))
		}
	}()

	return nil
}

func (w *PresenceKeeper) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// IsRunning возвращает текущий статус
func (w *PresenceKeeper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *PresenceKeeper) Run(ctx context.Context) error {
	logger(ctx).Info("presence keeper started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger(ctx).Info("presence keeper stopped")
			return ctx.Err()
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

func (w *PresenceKeeper) refreshAll(ctx context.Context) {
	var failed int

	for _, c := range w.connections.Clients() {
		if ctx.Err() != nil {
			return
		}

		if err := w.registry.Refresh(ctx, c.UserID, c.ID); err != nil {
			failed++
			logger(ctx).Warn("presence refresh failed",
				logx.Stringer(logx.FieldUserID, c.UserID),
				slog.String("conn-id", c.ID),
				logx.Error(err),
			)
		}
	}

	if failed > 0 {
		logger(ctx).Warn("presence refresh cycle completed with errors", slog.Int("failed", failed))
	}
}
