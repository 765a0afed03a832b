package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

const (
	keyPrefix     = "stock:"
	channelPrefix = "prices."
	redisTimeout  = 2 * time.Second
)

var _ feed.Listener = (*RedisPublisher)(nil)

// RedisPublisher stores the latest tick per symbol and publishes it on the
// symbol's channel in one pipeline.
type RedisPublisher struct {
	rdb RedisClient
	ttl time.Duration

	mu  sync.Mutex
	seq map[string]int64
}

func NewRedisPublisher(rdb RedisClient, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, ttl: ttl, seq: make(map[string]int64)}
}

func (r *RedisPublisher) ID() string { return "redis-publisher" }

func (r *RedisPublisher) OnPriceUpdate(symbol string, price float64) error {
	r.mu.Lock()
	r.seq[symbol]++
	seq := r.seq[symbol]
	r.mu.Unlock()

	payload, err := json.Marshal(models.StockUpdate{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UnixMicro(),
		SeqID:     seq,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", symbol, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, keyPrefix+symbol, payload, r.ttl)
	pipe.Publish(ctx, channelPrefix+symbol, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for %s: %w", symbol, err)
	}
	return nil
}
