package listeners

import (
	"sort"
	"sync"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

var _ feed.Listener = (*Stats)(nil)

// Summary is the running view of one symbol.
type Summary struct {
	Symbol string
	Count  int
	Min    float64
	Max    float64
	Last   float64
}

// Stats keeps a Summary per symbol it has been notified about.
type Stats struct {
	id string

	mu      sync.RWMutex
	symbols map[string]*Summary
}

func NewStats(id string) *Stats {
	return &Stats{id: id, symbols: make(map[string]*Summary)}
}

func (s *Stats) ID() string { return s.id }

func (s *Stats) OnPriceUpdate(symbol string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, ok := s.symbols[symbol]
	if !ok {
		s.symbols[symbol] = &Summary{Symbol: symbol, Count: 1, Min: price, Max: price, Last: price}
		return nil
	}
	sum.Count++
	sum.Last = price
	if price < sum.Min {
		sum.Min = price
	}
	if price > sum.Max {
		sum.Max = price
	}
	return nil
}

func (s *Stats) Summary(symbol string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.symbols[symbol]
	if !ok {
		return Summary{}, false
	}
	return *sum, true
}

// Summaries returns every summary ordered by symbol.
func (s *Stats) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.symbols))
	for _, sum := range s.symbols {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
