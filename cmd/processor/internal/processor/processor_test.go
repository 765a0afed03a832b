package processor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/processor/internal/processor"
	"github.com/shubham-shewale/pricefeed/cmd/processor/internal/testutils"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/listeners"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

func toMessages(t *testing.T, updates []models.StockUpdate) []kafka.Message {
	t.Helper()
	var msgs []kafka.Message
	for _, u := range updates {
		val, err := json.Marshal(u)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(u.Symbol), Value: val})
	}
	return msgs
}

func newBoard(t *testing.T, ls ...feed.Listener) *feed.Board {
	t.Helper()
	board, err := feed.NewBoard(feed.WithWorkers(2), feed.WithListeners(ls...))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	return board
}

func TestProcessor_WorkerLogic(t *testing.T) {
	msgs := toMessages(t, []models.StockUpdate{
		{Symbol: "AAPL", Price: 100.0, SeqID: 1},
		{Symbol: "AAPL", Price: 100.0, SeqID: 1},
		{Symbol: "AAPL", Price: 101.0, SeqID: 2},
		{Symbol: "TSLA", Price: 900.0, SeqID: 1},
	})

	mockReader := &testutils.MockKafkaReader{Messages: msgs}
	mockRedis := testutils.NewMockRedisClient()
	board := newBoard(t, processor.NewRedisPublisher(mockRedis, time.Hour))

	proc := processor.NewProcessor(zap.NewNop(), mockReader, board, nil, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := proc.Run(ctx); err != nil {
		t.Logf("Processor stopped: %v", err)
	}

	execCount, cmds, _ := mockRedis.PipelineSpy.Snapshot()
	if execCount != 3 {
		t.Errorf("Expected 3 pipeline executions, got %d", execCount)
	}

	hasAAPL := false
	hasTSLA := false
	for _, cmd := range cmds {
		if cmd == "SET stock:AAPL" {
			hasAAPL = true
		}
		if cmd == "SET stock:TSLA" {
			hasTSLA = true
		}
	}
	if !hasAAPL {
		t.Error("Missing Redis command for AAPL")
	}
	if !hasTSLA {
		t.Error("Missing Redis command for TSLA")
	}

	aapl, ok := board.Lookup("AAPL")
	if !ok || aapl.Price() != 101.0 {
		t.Errorf("Expected AAPL feed at 101.0")
	}
}

func TestProcessor_PublishesInUpdateOrder(t *testing.T) {
	var updates []models.StockUpdate
	for i := 1; i <= 20; i++ {
		updates = append(updates, models.StockUpdate{Symbol: "GOOG", Price: float64(2800 + i), SeqID: int64(i)})
	}

	mockRedis := testutils.NewMockRedisClient()
	board := newBoard(t, processor.NewRedisPublisher(mockRedis, time.Hour))
	proc := processor.NewProcessor(zap.NewNop(), &testutils.MockKafkaReader{Messages: toMessages(t, updates)}, board, nil, time.Second)

	proc.Run(context.Background())

	_, _, payloads := mockRedis.PipelineSpy.Snapshot()
	if len(payloads) != 20 {
		t.Fatalf("Expected 20 payloads, got %d", len(payloads))
	}
	for i, raw := range payloads {
		var u models.StockUpdate
		if err := json.Unmarshal(raw, &u); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if u.Price != float64(2801+i) || u.SeqID != int64(i+1) {
			t.Errorf("payload %d out of order: %+v", i, u)
		}
	}
}

func TestProcessor_InvalidJSON(t *testing.T) {
	msgs := []kafka.Message{
		{Key: []byte("AAPL"), Value: []byte("{broken-json")},
	}

	mockReader := &testutils.MockKafkaReader{Messages: msgs}
	mockRedis := testutils.NewMockRedisClient()
	board := newBoard(t, processor.NewRedisPublisher(mockRedis, time.Hour))

	proc := processor.NewProcessor(zap.NewNop(), mockReader, board, nil, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	proc.Run(ctx)

	if execCount, _, _ := mockRedis.PipelineSpy.Snapshot(); execCount > 0 {
		t.Error("Should not execute Redis commands for invalid JSON")
	}
}

func TestProcessor_FiltersUnknownSymbols(t *testing.T) {
	msgs := toMessages(t, []models.StockUpdate{
		{Symbol: "AAPL", Price: 1, SeqID: 1},
		{Symbol: "DOGE", Price: 2, SeqID: 1},
	})
	stats := listeners.NewStats("analytics")
	board := newBoard(t, stats)

	proc := processor.NewProcessor(zap.NewNop(), &testutils.MockKafkaReader{Messages: msgs}, board, []string{"AAPL"}, time.Second)
	proc.Run(context.Background())

	if _, ok := stats.Summary("DOGE"); ok {
		t.Error("DOGE should have been filtered")
	}
	if sum, ok := stats.Summary("AAPL"); !ok || sum.Count != 1 {
		t.Errorf("Expected one AAPL notification, got %+v", sum)
	}
}

func TestProcessor_RedisFailureDoesNotStopOtherListeners(t *testing.T) {
	mockRedis := testutils.NewMockRedisClient()
	mockRedis.PipelineSpy.FailExec = true
	stats := listeners.NewStats("analytics")
	board := newBoard(t, processor.NewRedisPublisher(mockRedis, time.Hour), stats)

	msgs := toMessages(t, []models.StockUpdate{
		{Symbol: "TSLA", Price: 700, SeqID: 1},
		{Symbol: "TSLA", Price: 701, SeqID: 2},
	})
	proc := processor.NewProcessor(zap.NewNop(), &testutils.MockKafkaReader{Messages: msgs}, board, nil, time.Second)
	proc.Run(context.Background())

	sum, ok := stats.Summary("TSLA")
	if !ok || sum.Count != 2 || sum.Last != 701 {
		t.Errorf("Analytics listener should still see both ticks, got %+v", sum)
	}
}
