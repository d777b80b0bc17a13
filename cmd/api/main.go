package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zibanoo/commerce-core/internal/adapter/httpx"
	"github.com/zibanoo/commerce-core/internal/adapter/storage/redis"
	"github.com/zibanoo/commerce-core/internal/adapter/storage/sqlite"
	"github.com/zibanoo/commerce-core/internal/core/ports"
	"github.com/zibanoo/commerce-core/internal/core/service"
	"github.com/zibanoo/commerce-core/internal/pkg/config"
	"github.com/zibanoo/commerce-core/internal/pkg/events"
	"github.com/zibanoo/commerce-core/internal/pkg/metrics"
	"github.com/zibanoo/commerce-core/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName)
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var cache ports.Cache
	if cfg.RedisAddr != "" {
		rc := redis.New(cfg.RedisAddr, cfg.ServiceName)
		if err := rc.Ping(ctx); err != nil {
			slog.Error("failed to reach redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
	} else {
		slog.Warn("REDIS_ADDR not set, caching disabled")
	}

	var publisher ports.EventPublisher
	if kc := events.NewClient(cfg.KafkaBrokers); kc.Enabled() {
		p := events.NewPublisher(kc, cfg.StatusEventTopic)
		defer p.Close()
		publisher = p
	} else {
		slog.Warn("KAFKA_BROKERS not set, status events disabled")
	}

	m := metrics.New("api")

	handler := httpx.NewHandler(
		service.NewOrderService(store, cache, publisher, m),
		service.NewCheckoutService(store, cache, publisher, m),
		service.NewPromotionService(store, cache, cfg.CacheTTL),
		service.NewCartService(store, cache, cfg.CacheTTL),
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpx.NewRouter(handler, m),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("commerce api running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
