package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/pricefeed/pkg/config"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	repo := repository.NewRedisStore(rdb)

	reg := prometheus.NewRegistry()
	collector := metrics.NewFeedCollector(reg)

	board, err := feed.NewBoard(
		feed.WithWorkers(cfg.Feed.Workers),
		feed.WithLogger(logger),
		feed.WithMetrics(collector),
	)
	if err != nil {
		logger.Fatal("Failed to create feed board", zap.Error(err))
	}

	// Dependency Injection: Hub depends on the Repository Interface
	wsHub := hub.NewHub(repo, board, logger, cfg.Gateway.SnapshotWorkers)

	validTickers := make(map[string]bool)
	for _, t := range cfg.Gateway.ValidTickers {
		validTickers[t] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("Websocket upgrade failed", zap.Error(err))
			return
		}

		client := gateway.NewClient(conn, wsHub, logger, validTickers)
		client.Start()
	})
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	var result *multierror.Error
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Feed.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http server: %w", err))
	}

	report := wsHub.Shutdown(cfg.Feed.ShutdownTimeout)
	if !report.Drained {
		logger.Warn("Feeds did not drain", zap.Int("cancelled", report.Cancelled))
	}

	if err := repo.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("redis: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Error("Unclean shutdown", zap.Error(err))
		return
	}
	logger.Info("Shutdown Complete")
}
