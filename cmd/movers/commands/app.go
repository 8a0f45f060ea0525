package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wonny/topmover/backend/internal/api/handlers"
	"github.com/wonny/topmover/backend/internal/external/polygon"
	"github.com/wonny/topmover/backend/internal/ingest"
	"github.com/wonny/topmover/backend/internal/winners"
	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/database"
	"github.com/wonny/topmover/backend/pkg/httputil"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
	"github.com/wonny/topmover/backend/pkg/redis"
)

// keyPrefix namespaces Redis keys
const keyPrefix = "topmover"

// app holds the shared dependencies every command builds on
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
}

// bootstrap loads config and opens the database and Redis
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db, redis: rdb}, nil
}

func (a *app) close() {
	_ = a.redis.Close()
	a.db.Close()
}

func (a *app) winnerStore() *winners.Repository {
	return winners.NewRepository(a.db.Pool, a.cfg.Store)
}

// pipeline wires provider client, store and router
func (a *app) pipeline() (*ingest.Router, error) {
	if err := a.cfg.ValidateIngestion(); err != nil {
		return nil, err
	}

	httpClient := httputil.New(a.cfg, a.log)
	if a.redis.Enabled() && a.cfg.Provider.RatePerMinute > 0 {
		limiter := redis.NewRateLimiter(a.redis, keyPrefix)
		httpClient.WithRateLimiter(limiter, redis.ProviderRateLimit(a.cfg.Provider.RatePerMinute))
	}

	client := polygon.NewClient(httpClient, a.cfg, a.log)
	router := ingest.NewRouter(a.cfg, client, a.winnerStore(), a.log)
	if a.redis.Enabled() {
		router.WithCacheInvalidation(
			redis.NewCache(a.redis, keyPrefix),
			redis.LatestMoversKey(a.cfg.Store.PartitionKey, handlers.LatestLimit),
		)
	}
	return router, nil
}

// serveMetrics exposes /metrics on the metrics port until ctx ends
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.MetricsEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: ":" + a.cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Warn("Metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
