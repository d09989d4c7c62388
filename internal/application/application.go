package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"trade_market/internal/auth"
	"trade_market/internal/config"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/service/notify"
	"trade_market/internal/domain/service/trade"
	"trade_market/internal/infrastructure/catalog"
	"trade_market/internal/infrastructure/notifier"
	"trade_market/internal/infrastructure/persistence"
	"trade_market/internal/realtime"
	"trade_market/internal/server"
	"trade_market/internal/worker"
	"trade_market/pkg/application/connectors"
	"trade_market/pkg/application/modules"
	"trade_market/pkg/contextx"
	"trade_market/pkg/logx"
	"trade_market/pkg/middlewarex"
	"trade_market/pkg/probe"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	httpServerReadHeaderTimeout = 5 * time.Second
	dealFeedBuffer              = 100
	catalogServiceSubject       = "trade_market"
)

func Run(ctx context.Context, cfg config.Config) error {
	// 1. Database
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	// 2. Repositories
	tradeRepo := persistence.NewTradeRepository(db, cfg.Postgres.QueryTimeout)
	offerRepo := persistence.NewOfferRepository(db, cfg.Postgres.QueryTimeout)
	notificationRepo := persistence.NewNotificationRepository(db, cfg.Postgres.QueryTimeout)

	// 3. Presence and realtime push
	var (
		redisClient *redis.Client
		registry    realtime.Registry
		broker      realtime.Broker
	)

	hub := realtime.NewHub()

	if cfg.Redis.Enabled() {
		rc := &connectors.Redis{
			Address:        cfg.Redis.Address,
			Username:       cfg.Redis.Username,
			Password:       cfg.Redis.Password,
			DatabaseNumber: cfg.Redis.DB,
			PoolSize:       cfg.Redis.PoolSize,
		}
		redisClient = rc.Client(ctx)
		defer rc.Close(ctx)

		registry = realtime.NewRedisRegistry(redisClient, cfg.Presence.TTL)
		broker = realtime.NewRedisBroker(redisClient, hub)
	} else {
		registry = realtime.NewMemoryRegistry()
		broker = realtime.NewLocalBroker(hub)
	}

	gateway := realtime.NewGateway(registry, hub, broker)

	// 4. Notifications
	dispatcher := notify.NewDispatcher(notificationRepo, gateway)

	var (
		tradeNotifier interface {
			Notify(ctx context.Context, draft entity.NotificationDraft)
		} = dispatcher
		notifyQueue *notify.Queue
	)

	if cfg.Notify.Async {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()

		notifyQueue = notify.NewQueue(asynqClient, cfg.Notify.Queue, dispatcher)
		tradeNotifier = notifyQueue
	}

	// 5. Catalog
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer)

	catalogClient, err := catalog.NewClient(catalog.Options{
		BaseURL:        cfg.Catalog.URL,
		Timeout:        cfg.Catalog.Timeout,
		CacheTTL:       cfg.Catalog.CacheTTL,
		LogFieldMaxLen: cfg.HTTP.LogFieldMaxLen,
	}, catalog.NewServiceAuthenticator(tokens, catalogServiceSubject, cfg.Catalog.ServiceTokenTTL))
	if err != nil {
		return fmt.Errorf("catalog.NewClient: %w", err)
	}

	// 6. Negotiation engine
	tradeService := trade.NewService(tradeRepo, offerRepo, catalogClient, tradeNotifier, gateway)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Bot.Enabled() {
		deals := make(chan entity.Deal, dealFeedBuffer)
		tradeService.WithDeals(deals)

		if err = runDealFeed(ctx, g, cfg.Bot, deals); err != nil {
			return err
		}
	}

	// 7. Modules
	srv := server.NewServer(
		tokens,
		server.NewTradeServer(tradeService),
		server.NewNotificationServer(dispatcher),
		server.NewRealtimeServer(gateway, tokens, tradeService.Authorize),
	)

	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, newHTTPServer(ctx, cfg.HTTP, srv))

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.Probe.ListenAddress,
	}.Run(ctx, g, readinessChecks(db, redisClient)...)

	modules.MetricServer{ListenAddress: cfg.Metrics.ListenAddress}.Run(ctx, g)

	if notifyQueue != nil {
		modules.AsynqServer{
			RedisUsername: cfg.Redis.Username,
			RedisPassword: cfg.Redis.Password,
			RedisAddress:  cfg.Redis.Address,
			RedisDB:       cfg.Redis.DB,
		}.Run(ctx, g, modules.AsynqQueues{cfg.Notify.Queue: 1}, modules.AsynqHandler{
			Pattern: notify.TaskTypeDeliver,
			Handle:  notifyQueue.HandleDeliver,
		})
	}

	g.Go(func() error {
		if err := gateway.Run(ctx); err != nil {
			return fmt.Errorf("gateway.Run: %w", err)
		}
		return nil
	})

	if cfg.Redis.Enabled() {
		keeper := worker.NewPresenceKeeper(hub, registry, cfg.Presence.TTL)

		g.Go(func() error {
			if err := keeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("presenceKeeper.Run: %w", err)
			}
			return nil
		})
	}

	logger(ctx).Info("application started")

	if err = g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	logger(ctx).Info("application stopping...")

	return nil
}

func newHTTPServer(ctx context.Context, cfg config.HTTP, srv server.Server) *http.Server {
	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.RequestLogging(masker, cfg.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.LogFieldMaxLen),
	)

	srv.RegisterRoutes(router)

	return &http.Server{
		//nolint:exhaustruct
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: httpServerReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) []probe.Check {
	checks := []probe.Check{{Name: "postgres", Check: db.PingContext}}

	if redisClient != nil {
		checks = append(checks, probe.Check{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	return checks
}

func runDealFeed(ctx context.Context, g *errgroup.Group, cfg config.Bot, deals <-chan entity.Deal) error {
	bot, err := notifier.NewTelegramBot(cfg.Token, cfg.ChatID)
	if err != nil {
		return fmt.Errorf("notifier.NewTelegramBot: %w", err)
	}

	g.Go(func() error {
		logger(ctx).Info("deal feed started")

		if err := bot.Run(ctx, deals); err != nil && !errors.Is(err, context.Canceled) {
			logger(ctx).Error("deal feed stopped", logx.Error(err))
		}

		return nil
	})

	return nil
}
