package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/models"
)

// Processor turns Kafka ticks into feed updates. Fan-out to Redis and any
// other sink happens through listeners registered on the board.
type Processor struct {
	logger          *zap.Logger
	reader          KafkaReader
	board           *feed.Board
	allowed         map[string]bool
	shutdownTimeout time.Duration

	// only touched by the Run goroutine
	lastSeq map[string]int64
}

// NewProcessor accepts every symbol when symbols is empty.
func NewProcessor(logger *zap.Logger, reader KafkaReader, board *feed.Board, symbols []string, shutdownTimeout time.Duration) *Processor {
	var allowed map[string]bool
	if len(symbols) > 0 {
		allowed = make(map[string]bool, len(symbols))
		for _, s := range symbols {
			allowed[s] = true
		}
	}
	return &Processor{
		logger:          logger,
		reader:          reader,
		board:           board,
		allowed:         allowed,
		shutdownTimeout: shutdownTimeout,
		lastSeq:         make(map[string]int64),
	}
}

// Run consumes until ctx is cancelled or the stream ends, then shuts the
// board down so queued notifications get their drain window.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("Processor Started")

	for {
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				break
			}
			p.logger.Error("Kafka Read Error", zap.Error(err))
			continue
		}
		p.handle(m.Key, m.Value)
	}

	p.logger.Info("Stream stopped, draining feeds...")
	report := p.board.Shutdown(p.shutdownTimeout)
	p.logger.Info("Feeds drained", zap.Bool("drained", report.Drained), zap.Int("cancelled", report.Cancelled))
	return nil
}

func (p *Processor) handle(key, payload []byte) {
	var update models.StockUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		p.logger.Error("JSON Unmarshal Error", zap.Error(err))
		return
	}
	if update.Symbol == "" {
		update.Symbol = string(key)
	}

	if p.allowed != nil && !p.allowed[update.Symbol] {
		p.logger.Debug("Ignoring unknown symbol", zap.String("symbol", update.Symbol))
		return
	}

	if update.SeqID <= p.lastSeq[update.Symbol] {
		p.logger.Debug("Skipping duplicate update", zap.String("symbol", update.Symbol), zap.Int64("seq_id", update.SeqID))
		return
	}

	f, err := p.board.Feed(update.Symbol)
	if err != nil {
		p.logger.Error("Feed unavailable", zap.String("symbol", update.Symbol), zap.Error(err))
		return
	}
	if err := f.Update(update.Price); err != nil {
		p.logger.Warn("Update not published", zap.String("symbol", update.Symbol), zap.Error(err))
		return
	}
	p.lastSeq[update.Symbol] = update.SeqID
}
