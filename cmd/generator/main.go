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
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/generator/internal/generator"
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

	clock := generator.RealClock{}

	// Make sure the topic exists before the first write
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	creator := generator.NewTopicCreator(logger, generator.NewKafkaDialer(10*time.Second), clock, cfg.Generator.Partitions)
	if err := creator.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
		logger.Warn("Topic setup incomplete, continuing", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{}, // same symbol, same partition
		// Batching keeps network IO down; Async leaves buffering to the writer
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}

	reg := prometheus.NewRegistry()
	board, err := feed.NewBoard(
		feed.WithWorkers(cfg.Feed.Workers),
		feed.WithLogger(logger),
		feed.WithMetrics(metrics.NewFeedCollector(reg)),
		feed.WithListeners(generator.NewKafkaSink(writer, clock)),
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

	basePrices := make(map[string]float64, len(cfg.Generator.Tickers))
	for _, t := range cfg.Generator.Tickers {
		basePrices[t] = cfg.BasePrice(t)
	}

	gen := generator.NewStockGenerator(
		logger,
		board,
		cfg.Generator.Tickers,
		basePrices,
		generator.NewRealRand(time.Now().UnixNano()),
		clock,
		cfg.Generator.Interval,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		gen.Run(ctx)
	}()

	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()
	<-done

	report := board.Shutdown(cfg.Feed.ShutdownTimeout)
	logger.Info("Feeds drained", zap.Bool("drained", report.Drained), zap.Int("cancelled", report.Cancelled))

	// Flush the Kafka buffer only after the sink has stopped writing into it
	var result *multierror.Error
	if err := writer.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("kafka writer: %w", err))
	}
	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Error("Unclean shutdown", zap.Error(err))
		return
	}
	logger.Info("Kafka writer closed cleanly")
}
