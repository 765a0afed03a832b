package generator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

const minPrice = 0.01

// StockGenerator random-walks a price per ticker and pushes every step into
// the ticker's feed. What happens to a step is up to the feed's listeners.
type StockGenerator struct {
	logger   *zap.Logger
	board    *feed.Board
	tickers  []string
	prices   map[string]float64
	rand     Rand
	clock    Clock
	interval time.Duration
}

func NewStockGenerator(
	logger *zap.Logger,
	board *feed.Board,
	tickers []string,
	basePrices map[string]float64,
	rnd Rand,
	clock Clock,
	interval time.Duration,
) *StockGenerator {
	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		prices[t] = basePrices[t]
	}
	return &StockGenerator{
		logger:   logger,
		board:    board,
		tickers:  tickers,
		prices:   prices,
		rand:     rnd,
		clock:    clock,
		interval: interval,
	}
}

// Run steps until ctx is done. It does not shut the board down.
func (sg *StockGenerator) Run(ctx context.Context) {
	sg.logger.Info("Generator Started", zap.Strings("tickers", sg.tickers))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if len(sg.tickers) == 0 {
				sg.clock.Sleep(1 * time.Second)
				continue
			}

			symbol, price := sg.step()

			f, err := sg.board.Feed(symbol)
			if err != nil {
				sg.logger.Error("Feed unavailable", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			if err := f.Update(price); err != nil {
				sg.logger.Warn("Update rejected", zap.String("symbol", symbol), zap.Error(err))
				return
			}

			sg.clock.Sleep(sg.interval)
		}
	}
}

// step moves one random ticker by up to ±5 and returns its new price.
func (sg *StockGenerator) step() (string, float64) {
	symbol := sg.tickers[sg.rand.Intn(len(sg.tickers))]
	fluctuation := (sg.rand.Float64() * 10) - 5

	price := sg.prices[symbol] + fluctuation
	if price < minPrice {
		price = minPrice
	}
	sg.prices[symbol] = price
	return symbol, price
}
