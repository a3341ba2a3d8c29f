package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-eats/internal/config"
	"campus-eats/internal/db"
	"campus-eats/internal/events"
	"campus-eats/internal/idempotency"
	"campus-eats/internal/logger"
	"campus-eats/internal/menu"
	"campus-eats/internal/metrics"
	"campus-eats/internal/middleware"
	"campus-eats/internal/order"
	"campus-eats/internal/transport"
	"campus-eats/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	handler, limiter, cleanup := newServer(cfg, database)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go limiter.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newServer wires repositories, services and the router. Redis and Kafka
// are optional: without them idempotency keys are ignored and order events
// are dropped.
func newServer(cfg *config.Config, database *sql.DB) (http.Handler, *middleware.RateLimiter, func()) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	menuSvc := menu.NewService(menu.NewRepository(database))

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.OrderTopic())

	var (
		guard *idempotency.Guard
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.L().Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		guard = idempotency.NewGuard(idempotency.NewRedisStore(rdb, cfg.IdempotencyWindow()))
	}

	orderSvc := order.NewService(order.NewRepository(database), menuSvc, order.Options{
		LeadTime: cfg.LeadTime(),
		Location: cfg.Location(),
		IDs:      utils.NewOrderIDGenerator(),
		Metrics:  metrics.NewOrderMetrics(reg),
		Events:   publisher,
	})

	limiter := middleware.NewRateLimiter(cfg.InternalServiceKey)

	handler := transport.NewRouter(transport.Deps{
		MenuSvc:       menuSvc,
		OrderSvc:      orderSvc,
		Guard:         guard,
		Secret:        []byte(cfg.SecretKey),
		AllowedOrigin: cfg.ClientURL,
		Limiter:       limiter,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Gatherer:      reg,
		Ping:          database.PingContext,
	})

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.L().Warn("failed to close event publisher", zap.Error(err))
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	return handler, limiter, cleanup
}
