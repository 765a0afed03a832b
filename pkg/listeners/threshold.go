package listeners

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

var _ feed.Listener = (*Threshold)(nil)

var ErrInvalidPrice = errors.New("invalid price")

// Band is the range a symbol is expected to trade in.
type Band struct {
	Low  float64
	High float64
}

// Threshold logs a warning each time a symbol leaves its band and an info
// line when it returns. Only crossings are reported, not every tick outside.
type Threshold struct {
	id     string
	bands  map[string]Band
	logger *zap.Logger

	mu      sync.Mutex
	outside map[string]bool
	alerts  int
}

func NewThreshold(id string, bands map[string]Band, logger *zap.Logger) *Threshold {
	return &Threshold{
		id:      id,
		bands:   bands,
		logger:  logger,
		outside: make(map[string]bool),
	}
}

func (t *Threshold) ID() string { return t.id }

func (t *Threshold) OnPriceUpdate(symbol string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: %s@%v", ErrInvalidPrice, symbol, price)
	}
	band, ok := t.bands[symbol]
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := price < band.Low || price > band.High
	switch {
	case out && !t.outside[symbol]:
		t.alerts++
		t.logger.Warn("Price left band",
			zap.String("alert", t.id),
			zap.String("symbol", symbol),
			zap.Float64("price", price),
			zap.Float64("low", band.Low),
			zap.Float64("high", band.High))
	case !out && t.outside[symbol]:
		t.logger.Info("Price back in band", zap.String("alert", t.id), zap.String("symbol", symbol), zap.Float64("price", price))
	}
	t.outside[symbol] = out
	return nil
}

// Alerts is the number of band exits seen so far.
func (t *Threshold) Alerts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alerts
}
