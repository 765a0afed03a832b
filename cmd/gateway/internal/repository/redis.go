package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "stock:"
	channelPrefix = "prices."
)

// Compile-time check to ensure RedisStore implements PriceStore
var _ PriceStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
	mu     sync.Mutex // serialises channel (un)subscribe calls
}

func NewRedisStore(client *redis.Client) *RedisStore {
	ps := client.Subscribe(context.Background())
	return &RedisStore{
		client: client,
		pubsub: ps,
	}
}

// GetSnapshots fetches the latest stored tick for each symbol (MGET); missing keys are skipped
func (r *RedisStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = keyPrefix + sym
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubsub.Subscribe(ctx, channelPrefix+symbol)
}

func (r *RedisStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubsub.Unsubscribe(ctx, channelPrefix+symbol)
}

func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			symbol := strings.TrimPrefix(msg.Channel, channelPrefix)
			if symbol == msg.Channel || symbol == "" {
				continue
			}
			onMessage(symbol, msg.Payload)
		}
	}
}

func (r *RedisStore) Close() error {
	var result *multierror.Error
	if err := r.pubsub.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.client.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
