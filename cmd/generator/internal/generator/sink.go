package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

const writeTimeout = 5 * time.Second

var _ feed.Listener = (*KafkaSink)(nil)

// KafkaSink writes every feed update to Kafka keyed by symbol, so one symbol
// stays on one partition. SeqIDs are per symbol and start at 1.
type KafkaSink struct {
	writer KafkaWriter
	clock  Clock

	mu  sync.Mutex
	seq map[string]int64
}

func NewKafkaSink(writer KafkaWriter, clock Clock) *KafkaSink {
	return &KafkaSink{writer: writer, clock: clock, seq: make(map[string]int64)}
}

func (k *KafkaSink) ID() string { return "kafka-sink" }

func (k *KafkaSink) OnPriceUpdate(symbol string, price float64) error {
	k.mu.Lock()
	k.seq[symbol]++
	seq := k.seq[symbol]
	k.mu.Unlock()

	payload, err := json.Marshal(models.StockUpdate{
		Symbol:    symbol,
		Price:     price,
		Timestamp: k.clock.Now().UnixMicro(),
		SeqID:     seq,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", symbol, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(symbol), Value: payload}); err != nil {
		return fmt.Errorf("kafka write %s: %w", symbol, err)
	}
	return nil
}
