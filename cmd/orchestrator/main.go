package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog/postgres"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/config"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/infra/adapters/client"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/infra/events"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/infra/httpx"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/infra/idempotency"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/cache"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger(getEnv("OTEL_SERVICE_NAME", "orchestrator"))

	if err := run(); err != nil {
		slog.Error("orchestrator stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(getEnv("ORCHESTRATOR_CONFIG_DIR", "config"))
	if err != nil {
		return err
	}

	if cfg.OTel.Enabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTel.Endpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	} else {
		telemetry.SetupPropagator()
	}

	store, err := openSagaLog(ctx, cfg.SagaLog)
	if err != nil {
		return err
	}
	var sagas sagalog.Reader
	if store != nil {
		defer store.Close()
		sagas = store
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpClient := client.NewHTTPClient(cfg.Downstream.Timeout)
	retry := client.RetryPolicy{MaxAttempts: cfg.Downstream.MaxAttempts, InitialBackoff: cfg.Downstream.Backoff}

	opts := coordinator.Options{
		PricingConcurrency: cfg.Pricing.Concurrency,
		Publisher:          publisher,
		Metrics:            coordinator.NewMetrics(registry),
	}
	if store != nil {
		opts.SagaLog = store
	}
	engine := coordinator.NewEngine(
		client.NewCatalogClient(httpClient, cfg.Catalog.URL, retry),
		client.NewOrdersClient(httpClient, cfg.Orders.URL, retry),
		client.NewPaymentsClient(httpClient, cfg.Payments.URL, retry),
		client.NewShippingClient(httpClient, cfg.Shipping.URL, retry),
		opts,
	)

	var placer ports.OrderPlacer = engine
	if cfg.Idempotency.Enabled {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.ServiceName)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("redis not reachable, idempotency guard will pass requests through until it is", "addr", cfg.Redis.Addr, "error", err)
		}
		placer = idempotency.NewGuard(engine, redisCache, cfg.Idempotency.TTL)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(httpx.NewHandler(placer, sagas), registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("orchestrator HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("orchestrator gRPC health running", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

func openSagaLog(ctx context.Context, cfg config.SagaLog) (sagalog.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		repo, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := postgres.Open(connectCtx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		slog.Info("saga log disabled")
		return nil, nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config) (ports.EventPublisher, error) {
	if cfg.Events.SNSTopicArn == "" {
		return nil, nil
	}
	snsClient, err := events.NewSNSClient(ctx, cfg.AWS.Region, cfg.Events.SNSEndpoint)
	if err != nil {
		return nil, err
	}
	return events.NewSNSPublisher(snsClient, cfg.Events.SNSTopicArn), nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
