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
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/cache"
	eventadapter "github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/events"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/gateway"
	httpadapter "github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/http"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/postgres"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/security"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ledger"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
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
	slog.SetDefault(logger)
	logger.Info("bootstrapping investment core", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	catalog := cacheadapter.NewRedisCatalogStore(redisClient)

	shareLedger := ledger.New(repos.Ledger, logger,
		eventadapter.NewCatalogProjector(logger, catalog),
		eventadapter.NewOutboxAvailabilityNotifier(logger, repos.Outbox, cfg.ServiceID),
	)

	var admin ports.AdminVerifier
	if cfg.AdminCodeHash != "" {
		admin = security.NewBcryptAdminVerifier(cfg.AdminCodeHash)
	} else {
		logger.Warn("using plaintext admin code for local/dev runtime")
		admin = security.NewStaticAdminVerifier(cfg.AdminCodePlain)
	}

	var payments ports.PaymentGateway
	if cfg.PaymentBaseURL != "" {
		payments, err = gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentGatewayConfig{
			HTTPClient: &http.Client{Timeout: cfg.PaymentTimeout},
			BaseURL:    cfg.PaymentBaseURL,
			APIKey:     cfg.PaymentAPIKey,
		})
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init payment gateway: %w", err)
		}
	} else {
		logger.Warn("payment gateway not configured, confirming payments locally")
		payments = gateway.NewMemoryPaymentGateway()
	}

	var domainEvents ports.DomainPublisher
	var analytics ports.AnalyticsPublisher
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if pubErr != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", pubErr)
		}
		domainEvents = kafkaPublisher
		analytics = kafkaPublisher
		closePublisher = kafkaPublisher.Close
	} else {
		logger.Warn("kafka not configured, events stay in the outbox")
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Offerings:    repos.Offerings,
		Requests:     repos.Requests,
		Deletions:    repos.Deletions,
		Idempotency:  repos.Idempotency,
		Outbox:       repos.Outbox,
		Catalog:      catalog,
		Ledger:       shareLedger,
		DomainEvents: domainEvents,
		Analytics:    analytics,
		DLQ:          eventadapter.NewLoggingDLQPublisher(logger),
		Payments:     payments,
		Admin:        admin,
		Logger:       logger,
	})

	ready := func() error {
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, ready)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
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
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
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
