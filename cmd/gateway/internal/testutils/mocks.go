package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

var ErrMockClient = errors.New("mock client failure")

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores decoded JSON messages
	RawBytes []string              // Stores raw bytes
	Ticks    []models.Tick         // Live prices received as a feed listener
	Closed   bool
	Fail     bool // OnPriceUpdate returns ErrMockClient
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) OnPriceUpdate(symbol string, price float64) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return ErrMockClient
	}
	m.Ticks = append(m.Ticks, models.Tick{Symbol: symbol, Price: price})
	return nil
}

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	// If it's a response, store it
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func (m *MockClient) LastMessage() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

// MessagesOfType returns a copy of the received responses with the given type.
func (m *MockClient) MessagesOfType(typ string) []protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []protocol.WSResponse
	for _, msg := range m.Messages {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockClient) ReceivedTicks() []models.Tick {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]models.Tick, len(m.Ticks))
	copy(out, m.Ticks)
	return out
}

func (m *MockClient) IsClosed() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

// MockPriceStore simulates Redis
type MockPriceStore struct {
	SubscribedChannels map[string]int // symbol -> count
	Snapshots          map[string]string
	Mu                 sync.Mutex
}

func NewMockStore() *MockPriceStore {
	return &MockPriceStore{
		SubscribedChannels: make(map[string]int),
		Snapshots: map[string]string{
			"AAPL": `{"symbol":"AAPL","price":150}`,
		},
	}
}

func (m *MockPriceStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []string
	for _, s := range symbols {
		if snap, ok := m.Snapshots[s]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *MockPriceStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]++
	return nil
}

func (m *MockPriceStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]--
	if m.SubscribedChannels[symbol] <= 0 {
		delete(m.SubscribedChannels, symbol)
	}
	return nil
}

// Subscriptions returns the upstream subscription count for symbol.
func (m *MockPriceStore) Subscriptions(symbol string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.SubscribedChannels[symbol]
}

func (m *MockPriceStore) ChannelCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.SubscribedChannels)
}

// RunPubSub blocks until ctx is done; tests drive Hub.Broadcast directly.
func (m *MockPriceStore) RunPubSub(ctx context.Context, onMessage func(channel string, payload string)) {
	<-ctx.Done()
}

func (m *MockPriceStore) Close() error { return nil }
