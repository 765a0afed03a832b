package tests

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/generator/internal/generator"
	"github.com/shubham-shewale/pricefeed/cmd/generator/internal/testutils"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/metrics"
)

func TestGenerator_ComponentWiring(t *testing.T) {
	// Simulates main: generator -> board -> kafka sink, with a fake writer
	mockWriter := &testutils.MockKafkaWriter{}
	mockClock := &testutils.MockClock{CurrentTime: time.Now()}
	mockRand := &testutils.MockRand{ValInt: 0, ValFloat: 0.9}

	reg := prometheus.NewRegistry()
	collector := metrics.NewFeedCollector(reg)

	board, err := feed.NewBoard(
		feed.WithWorkers(2),
		feed.WithLogger(zap.NewNop()),
		feed.WithMetrics(collector),
		feed.WithListeners(generator.NewKafkaSink(mockWriter, mockClock)),
	)
	if err != nil {
		t.Fatalf("board: %v", err)
	}

	tickers := []string{"MSFT", "GOOG"}
	basePrices := map[string]float64{"MSFT": 300.0, "GOOG": 2000.0}

	gen := generator.NewStockGenerator(zap.NewNop(), board, tickers, basePrices, mockRand, mockClock, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond) // Let it generate a few
		cancel()
	}()

	gen.Run(ctx)
	board.Shutdown(5 * time.Second)

	mockWriter.Mu.Lock()
	defer mockWriter.Mu.Unlock()

	if len(mockWriter.Messages) == 0 {
		t.Fatal("Generator failed to produce any messages in component test")
	}

	// MockRand returns 0 -> Index 0 -> MSFT only
	for _, msg := range mockWriter.Messages {
		if string(msg.Key) != "MSFT" {
			t.Errorf("Expected MSFT based on MockRand, got %s", string(msg.Key))
		}
	}

	if delivered := deliveredCount(t, reg); int(delivered) != len(mockWriter.Messages) {
		t.Errorf("Expected %d delivered notifications, metrics say %v", len(mockWriter.Messages), delivered)
	}
}

func deliveredCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != "pricefeed_feed_notifications_delivered_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
