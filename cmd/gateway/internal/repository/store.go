package repository

import (
	"context"
)

// PriceStore is the gateway's view of the processor's Redis output
type PriceStore interface {
	GetSnapshots(ctx context.Context, symbols []string) ([]string, error)
	SubscribeToFeed(ctx context.Context, symbol string) error
	UnsubscribeFromFeed(ctx context.Context, symbol string) error
	// RunPubSub blocks, calling onMessage per published price, until ctx is done or the store is closed
	RunPubSub(ctx context.Context, onMessage func(symbol string, payload string))
	Close() error
}
