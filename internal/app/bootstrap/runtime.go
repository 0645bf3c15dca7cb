package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/grpc"
	hookadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/hooks"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/http"
	ledgeradapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/ledger"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/application"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping m15 settlement engine",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage_backend", cfg.StorageBackend,
	)

	cleanups := []func(context.Context){}
	cleanup := func(ctx context.Context) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](ctx)
		}
	}

	deps := application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			EngineID:             cfg.EngineID,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			EventDedupTTL:        cfg.EventDedupTTL,
			ConsumerPollInterval: cfg.OutboxPollInterval,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Logger: logger,
	}

	switch cfg.StorageBackend {
	case "postgres":
		pool, connErr := postgres.Connect(ctx, cfg.DatabaseURL, int32(cfg.MaxDBConns))
		if connErr != nil {
			return nil, fmt.Errorf("connect postgres: %w", connErr)
		}
		sqlDB, dbErr := pool.DB()
		if dbErr != nil {
			return nil, fmt.Errorf("gorm sql db: %w", dbErr)
		}
		cleanups = append(cleanups, func(context.Context) { _ = sqlDB.Close() })
		if migErr := postgres.RunMigrations(ctx, pool); migErr != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("run migrations: %w", migErr)
		}
		repos := postgres.NewRepositories(pool)
		deps.Escrows = repos.Escrows
		deps.Capabilities = repos.Capabilities
		deps.Claims = repos.Claims
		deps.Disputes = repos.Disputes
		deps.Receipts = repos.Receipts
		deps.Settings = repos.Settings
		deps.Spending = repos.Spending
		deps.Metrics = repos.Metrics
		deps.Idempotency = repos.Idempotency
		deps.EventDedup = repos.EventDedup
		deps.Outbox = repos.Outbox

		if cfg.RedisURL != "" {
			redisClient, redisErr := cacheadapter.Connect(ctx, cfg.RedisURL)
			if redisErr != nil {
				cleanup(ctx)
				return nil, fmt.Errorf("connect redis: %w", redisErr)
			}
			if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
				cleanup(ctx)
				return nil, fmt.Errorf("ping redis: %w", pingErr)
			}
			cleanups = append(cleanups, func(context.Context) { _ = redisClient.Close() })
			deps.Idempotency = cacheadapter.NewRedisIdempotencyRepository(redisClient)
			deps.EventDedup = cacheadapter.NewRedisEventDedupRepository(redisClient)
		}
	case "memory":
		repos := memory.NewRepositories()
		deps.Escrows = repos.Escrows
		deps.Capabilities = repos.Capabilities
		deps.Claims = repos.Claims
		deps.Disputes = repos.Disputes
		deps.Receipts = repos.Receipts
		deps.Settings = repos.Settings
		deps.Spending = repos.Spending
		deps.Metrics = repos.Metrics
		deps.Idempotency = repos.Idempotency
		deps.EventDedup = repos.EventDedup
		deps.Outbox = repos.Outbox
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, eventadapter.KafkaTopics{
			Domain:    cfg.TopicDomain,
			Analytics: cfg.TopicAnalytics,
			Ops:       cfg.TopicOps,
			DLQ:       cfg.TopicDLQ,
		})
		if pubErr != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("init kafka publisher: %w", pubErr)
		}
		cleanups = append(cleanups, func(context.Context) { _ = publisher.Close() })
		deps.DomainEvents = publisher
		deps.Analytics = publisher
		deps.Ops = publisher
		deps.DLQ = publisher
	} else {
		logger.Warn("no kafka brokers configured, events stay in process")
		deps.DomainEvents = eventadapter.NewMemoryDomainPublisher()
		deps.Analytics = eventadapter.NewMemoryAnalyticsPublisher()
		deps.Ops = eventadapter.NewMemoryOpsPublisher()
		deps.DLQ = eventadapter.NewLoggingDLQPublisher()
	}

	deps.Transferor = ledgeradapter.NewMemoryLedger()
	deps.Hooks = hookadapter.NewWebhookNotifier(cfg.HookTimeout)

	svc := application.NewService(deps)

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler, cfg.JWTSecret)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewHealthServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outbox := eventadapter.NewOutboxWorker(logger, svc, cfg.OutboxPollInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
