package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/processor/internal/processor"
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

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 200,
		MaxBytes: 10e6,
		MaxWait:  200 * time.Millisecond,
		// Auto-commit; duplicates are dropped by SeqID
		CommitInterval:    1,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    10 * time.Second,
	})

	reg := prometheus.NewRegistry()
	collector := metrics.NewFeedCollector(reg)

	board, err := feed.NewBoard(
		feed.WithWorkers(cfg.Feed.Workers),
		feed.WithLogger(logger),
		feed.WithMetrics(collector),
		feed.WithListeners(processor.NewRedisPublisher(rdb, 1*time.Hour)),
	)
	if err != nil {
		logger.Fatal("Failed to create feed board", zap.Error(err))
	}

	metricsSrv := metrics.NewServer(cfg.Metrics.Addr, reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	proc := processor.NewProcessor(logger, reader, board, cfg.Processor.Symbols, cfg.Feed.ShutdownTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := proc.Run(ctx); err != nil {
			logger.Error("Processor stopped with error", zap.Error(err))
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping processor...")
	case <-done:
		logger.Warn("Processor stopped on its own")
	}
	cancel()
	<-done

	var result *multierror.Error
	if err := reader.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("kafka reader: %w", err))
	}
	if err := rdb.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("redis: %w", err))
	}
	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Error("Unclean shutdown", zap.Error(err))
		return
	}

	logger.Info("Processor exited cleanly")
}
