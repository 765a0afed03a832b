package feed

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Board holds one Feed per symbol, created on first use with the board's
// options.
type Board struct {
	opts []Option

	mu     sync.RWMutex
	feeds  map[string]*Feed
	closed bool
}

// NewBoard rejects WithDispatcher: every feed on a board owns its dispatcher.
func NewBoard(opts ...Option) (*Board, error) {
	s := newSettings(opts)
	if s.dispatcher != nil {
		return nil, fmt.Errorf("%w: boards cannot share a dispatcher", ErrInvalidArgument)
	}
	if s.workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidArgument, s.workers)
	}
	return &Board{
		opts:  opts,
		feeds: make(map[string]*Feed),
	}, nil
}

// Feed returns the feed for symbol, creating it if needed.
func (b *Board) Feed(symbol string) (*Feed, error) {
	b.mu.RLock()
	f, ok := b.feeds[symbol]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrFeedClosed
	}
	if ok {
		return f, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrFeedClosed
	}
	if f, ok := b.feeds[symbol]; ok {
		return f, nil
	}
	f, err := New(symbol, b.opts...)
	if err != nil {
		return nil, err
	}
	b.feeds[symbol] = f
	return f, nil
}

// Lookup returns the feed for symbol without creating it.
func (b *Board) Lookup(symbol string) (*Feed, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.feeds[symbol]
	return f, ok
}

// Symbols returns the symbols with a feed, sorted.
func (b *Board) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.feeds))
	for sym := range b.feeds {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Shutdown shuts every feed down in parallel, each with the same timeout,
// and merges the reports. Later calls to Feed fail with ErrFeedClosed.
func (b *Board) Shutdown(timeout time.Duration) ShutdownReport {
	b.mu.Lock()
	b.closed = true
	feeds := make([]*Feed, 0, len(b.feeds))
	for _, f := range b.feeds {
		feeds = append(feeds, f)
	}
	b.mu.Unlock()

	reports := make([]ShutdownReport, len(feeds))
	var g errgroup.Group
	for i, f := range feeds {
		i, f := i, f
		g.Go(func() error {
			reports[i] = f.Shutdown(timeout)
			return nil
		})
	}
	_ = g.Wait()

	merged := ShutdownReport{Drained: true}
	for _, r := range reports {
		merged.Drained = merged.Drained && r.Drained
		merged.Cancelled += r.Cancelled
	}
	return merged
}
