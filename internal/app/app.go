package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/version"
	cartv1 "github.com/vladislavdragonenkov/storefront/proto/cart/v1"
)

const gracefulStopTimeout = 5 * time.Second

// mutatingMethods — методы, для которых работает idempotency-key.
var mutatingMethods = []string{
	cartv1.CartService_AddItem_FullMethodName,
	cartv1.CartService_RemoveItem_FullMethodName,
	cartv1.CartService_DeleteProduct_FullMethodName,
	cartv1.CartService_ResetCart_FullMethodName,
}

// Run поднимает gRPC-сервер корзины и HTTP-сервер метрик и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	cartMetrics := metrics.NewCartMetrics()
	store, err := cart.Open(metrics.InstrumentRepository(deps.repo, cartMetrics), logger.WithField("layer", "cart"))
	if err != nil {
		return fmt.Errorf("open cart: %w", err)
	}

	publisher, kafkaProducer, kafkaErr := initEventPublisher(cfg, logger)
	defer closeKafka(kafkaProducer, logger)

	serviceLogger := logger.WithField("layer", "grpc")
	cartService := grpcsvc.NewCartService(store, deps.catalog, publisher, cartMetrics, cfg.StorageKey, serviceLogger)

	idempotencyRepo := deps.idempotency
	idempotencyOpts := []idempotency.Option{
		idempotency.WithLogger(logger.WithField("layer", "idempotency")),
		idempotency.WithMetrics(metrics.NewIdempotencyMetrics()),
		idempotency.WithTTL(cfg.IdempotencyTTL),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
	}
	idempotencyInterceptor := idempotency.NewInterceptor(idempotencyRepo, mutatingMethods, idempotencyOpts...)
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go idempotency.NewCleanupWorker(idempotencyRepo, idempotencyOpts...).Run(workerCtx)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		idempotencyInterceptor.Unary(),
	))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	cartv1.RegisterCartServiceServer(grpcServer, cartService)
	grpcMetrics.InitializeMetrics(grpcServer)

	// reflection для grpcurl
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(cartv1.CartService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthHandler := newHealthHandler(deps.storageChecker, len(cfg.Brokers()) > 0, kafkaErr)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":    lis.Addr().String(),
			"storage": cfg.StorageDriver,
			"version": version.String(),
		}).Info("gRPC сервер запущен")
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(gracefulStopTimeout):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newHealthHandler регистрирует проверки хранилища и, если брокеры заданы,
// публикации событий. Хранилище обязательно, события только понижают статус до degraded.
func newHealthHandler(storage healthcheck.Checker, eventsEnabled bool, eventsErr error) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", storage)
	if eventsEnabled {
		// producer создаётся один раз, поэтому ошибка старта фиксирована
		handler.RegisterChecker("events", healthcheck.NewOptionalChecker("events", func() error { return eventsErr }))
	}
	return handler
}

// startMetricsServer запускает HTTP-сервер с /metrics и health-эндпоинтами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
