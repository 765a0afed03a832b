package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/processor/internal/processor"
	"github.com/shubham-shewale/pricefeed/cmd/processor/internal/testutils"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

func TestProcessor_EndToEnd_Flow(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sub := rdb.Subscribe(context.Background(), "prices.GOOG")
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	update := models.StockUpdate{Symbol: "GOOG", Price: 1500.50, SeqID: 100}
	val, _ := json.Marshal(update)

	// Use Mock Reader because spinning up real Kafka is heavy/complex for unit tests
	mockReader := &testutils.MockKafkaReader{Messages: []kafka.Message{{Key: []byte("GOOG"), Value: val}}}

	board, err := feed.NewBoard(feed.WithWorkers(1), feed.WithListeners(processor.NewRedisPublisher(rdb, time.Hour)))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	proc := processor.NewProcessor(zap.NewNop(), mockReader, board, []string{"GOOG"}, 2*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := proc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !mr.Exists("stock:GOOG") {
		t.Fatal("Processor did not write stock:GOOG to Redis")
	}

	savedVal, _ := mr.Get("stock:GOOG")
	var saved models.StockUpdate
	if err := json.Unmarshal([]byte(savedVal), &saved); err != nil {
		t.Fatalf("Redis value is not a StockUpdate: %v", err)
	}
	if saved.Symbol != "GOOG" || saved.Price != 1500.50 {
		t.Errorf("Redis value mismatch, got %+v", saved)
	}
	if ttl := mr.TTL("stock:GOOG"); ttl != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", ttl)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != savedVal {
			t.Errorf("Published payload differs from snapshot.\nGot:  %s\nWant: %s", msg.Payload, savedVal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No message published on prices.GOOG")
	}
}
