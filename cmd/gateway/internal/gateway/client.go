package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/pricefeed/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

const (
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrSlowConsumer = errors.New("client send buffer full")
)

type ClientAdapter struct {
	id           string
	conn         net.Conn
	hub          *hub.Hub
	logger       *zap.Logger
	validTickers map[string]bool

	mu     sync.Mutex // guards send and closed
	send   chan []byte
	closed bool

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger, validTickers map[string]bool) *ClientAdapter {
	id := uuid.NewString()
	return &ClientAdapter{
		id:           id,
		conn:         conn,
		hub:          h,
		send:         make(chan []byte, sendBuffer),
		logger:       logger.With(zap.String("client_id", id), zap.String("remote", conn.RemoteAddr().String())),
		validTickers: validTickers,
		writeWait:    5 * time.Second,
		pongWait:     60 * time.Second,
		pingPeriod:   50 * time.Second,
	}
}

func (c *ClientAdapter) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.id }

// Close stops the write pump, which then closes the connection.
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// OnPriceUpdate pushes a ticker frame. A full buffer fails the delivery
// instead of stalling the feed's worker.
func (c *ClientAdapter) OnPriceUpdate(symbol string, price float64) error {
	b, err := json.Marshal(protocol.WSResponse{
		Type: protocol.TypeTicker,
		Data: models.Tick{Symbol: symbol, Price: price},
	})
	if err != nil {
		return err
	}
	return c.trySend(b)
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	if err := c.trySend(b); errors.Is(err, ErrSlowConsumer) {
		c.logger.Warn("Dropping message for slow client")
	}
}

func (c *ClientAdapter) trySend(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			break
		}

		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			break
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			break
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			break
		}

		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			continue
		case ws.OpText:
			var req protocol.WSRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, Message: "Invalid JSON"})
				continue
			}

			for i, s := range req.Payload.Symbols {
				req.Payload.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
			}

			c.hub.HandleCommand(c, req, c.validTickers)
		}
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.Write(ws.CompiledClose)
				return
			}
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
