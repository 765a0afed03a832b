package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

const storeTimeout = 2 * time.Second

// ClientInterface is a connected client. It receives live prices as a
// feed.Listener on every symbol it subscribed to.
type ClientInterface interface {
	feed.Listener
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub maps client subscriptions onto the board's feeds. The first listener on
// a feed opens the upstream Redis channel and the last one leaving closes it.
type Hub struct {
	board      *feed.Board
	clientSubs map[ClientInterface]map[string]bool

	store     repository.PriceStore
	logger    *zap.Logger
	snapshots *workerpool.WorkerPool
	mu        sync.Mutex
	closed    bool // set by Shutdown; guarded by mu

	stopPubSub context.CancelFunc
	pubsubDone chan struct{}
}

func NewHub(store repository.PriceStore, board *feed.Board, logger *zap.Logger, snapshotWorkers int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		board:      board,
		clientSubs: make(map[ClientInterface]map[string]bool),
		store:      store,
		logger:     logger,
		snapshots:  workerpool.New(snapshotWorkers),
		stopPubSub: cancel,
		pubsubDone: make(chan struct{}),
	}

	go func() {
		defer close(h.pubsubDone)
		h.store.RunPubSub(ctx, h.Broadcast)
	}()

	return h
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req, validTickers)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		h.sendError(client, req.ID, "Gateway shutting down")
		return
	}

	var valid []string
	for _, s := range req.Payload.Symbols {
		if !validTickers[s] || h.clientSubs[client][s] {
			continue
		}
		valid = append(valid, s)
	}

	if len(valid) == 0 {
		h.sendError(client, req.ID, "No valid/new symbols provided")
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	var accepted []string
	for _, sym := range valid {
		f, err := h.board.Feed(sym)
		if err != nil {
			h.logger.Error("Feed unavailable", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		if err := f.Register(client); err != nil {
			h.logger.Error("Failed to register client", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		h.clientSubs[client][sym] = true
		accepted = append(accepted, sym)

		if f.Len() == 1 {
			h.subscribeUpstream(sym)
		}
	}

	if len(accepted) == 0 {
		h.sendError(client, req.ID, "Subscription unavailable")
		return
	}
	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %v", accepted))

	// Snapshots come from Redis, off the hub lock
	h.snapshots.Submit(func() {
		h.sendSnapshots(client, accepted)
	})
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		for _, sym := range req.Payload.Symbols {
			if subs[sym] {
				delete(subs, sym)
				h.detach(client, sym)
				removed = append(removed, sym)
			}
		}
	}

	if len(removed) > 0 {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Symbols))
	}
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.detach(client, sym)
		}
		// Clear the map but keep the client registered
		h.clientSubs[client] = make(map[string]bool)
	}
	h.sendAck(client, req.ID, "success", "Unsubscribed from all symbols")
}

// Unregister drops every subscription of client and closes it.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.detach(client, sym)
		}
		delete(h.clientSubs, client)
	}
	client.Close()
}

// Broadcast turns a Redis price message into a feed update. Symbols nobody
// subscribed to are ignored.
func (h *Hub) Broadcast(symbol string, payload string) {
	f, ok := h.board.Lookup(symbol)
	if !ok {
		return
	}

	var update models.StockUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		h.logger.Warn("Dropping malformed price message", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	if err := f.Update(update.Price); err != nil {
		h.logger.Debug("Feed closed, dropping price", zap.String("symbol", symbol), zap.Error(err))
	}
}

// Shutdown stops the Redis loop, waits for pending snapshots and drains the
// feeds within timeout.
func (h *Hub) Shutdown(timeout time.Duration) feed.ShutdownReport {
	// Subscribes submit snapshot jobs under mu, so none can race StopWait
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.stopPubSub()
	<-h.pubsubDone
	h.snapshots.StopWait()
	return h.board.Shutdown(timeout)
}

// detach must be called with h.mu held.
func (h *Hub) detach(client ClientInterface, symbol string) {
	f, ok := h.board.Lookup(symbol)
	if !ok {
		return
	}
	f.Remove(client)
	if f.Len() == 0 {
		h.unsubscribeUpstream(symbol)
	}
}

func (h *Hub) subscribeUpstream(symbol string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.SubscribeToFeed(ctx, symbol); err != nil {
		h.logger.Error("Failed to subscribe upstream", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (h *Hub) unsubscribeUpstream(symbol string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.UnsubscribeFromFeed(ctx, symbol); err != nil {
		h.logger.Error("Failed to unsubscribe upstream", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (h *Hub) sendSnapshots(client ClientInterface, symbols []string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	snapshots, err := h.store.GetSnapshots(ctx, symbols)
	if err != nil {
		h.logger.Warn("Snapshot fetch failed", zap.Strings("symbols", symbols), zap.Error(err))
		return
	}
	for _, snap := range snapshots {
		var update models.StockUpdate
		if err := json.Unmarshal([]byte(snap), &update); err != nil {
			continue
		}
		client.SendJSON(protocol.WSResponse{
			Type: protocol.TypeSnapshot,
			Data: models.Tick{Symbol: update.Symbol, Price: update.Price},
		})
	}
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}
