package feed

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const DefaultWorkers = 4

// Feed is one observable price. Price reads are lock free; Update stores the
// new value and enqueues one notification per registered listener without
// waiting for any of them.
type Feed struct {
	symbol     string
	price      *atomic.Float64
	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    Metrics

	mu        sync.RWMutex // guards listeners/index and orders update waves
	listeners []Listener
	index     map[string]struct{}
}

type settings struct {
	workers    int
	logger     *zap.Logger
	metrics    Metrics
	onFailure  func(*ListenerFailure)
	dispatcher *Dispatcher
	listeners  []Listener
}

// Option configures a Feed.
type Option func(*settings)

func WithWorkers(n int) Option { return func(s *settings) { s.workers = n } }

func WithLogger(logger *zap.Logger) Option { return func(s *settings) { s.logger = logger } }

func WithMetrics(m Metrics) Option { return func(s *settings) { s.metrics = m } }

// WithFailureHandler is called, on a dispatcher worker, for every ListenerFailure.
func WithFailureHandler(fn func(*ListenerFailure)) Option {
	return func(s *settings) { s.onFailure = fn }
}

// WithDispatcher makes the feed use d instead of creating its own. The feed
// still owns d: Feed.Shutdown shuts it down.
func WithDispatcher(d *Dispatcher) Option { return func(s *settings) { s.dispatcher = d } }

// WithListeners registers listeners at construction.
func WithListeners(listeners ...Listener) Option {
	return func(s *settings) { s.listeners = append(s.listeners, listeners...) }
}

func newSettings(opts []Option) settings {
	s := settings{
		workers: DefaultWorkers,
		logger:  zap.NewNop(),
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func New(symbol string, opts ...Option) (*Feed, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidArgument)
	}
	s := newSettings(opts)

	d := s.dispatcher
	if d == nil {
		var err error
		d, err = NewDispatcher(DispatcherConfig{
			Workers:   s.workers,
			Logger:    s.logger,
			Metrics:   s.metrics,
			OnFailure: s.onFailure,
		})
		if err != nil {
			return nil, err
		}
	}

	f := &Feed{
		symbol:     symbol,
		price:      atomic.NewFloat64(0),
		dispatcher: d,
		logger:     s.logger.With(zap.String("symbol", symbol)),
		metrics:    s.metrics,
		index:      make(map[string]struct{}),
	}
	for _, l := range s.listeners {
		if err := f.Register(l); err != nil {
			d.Shutdown(0)
			return nil, err
		}
	}
	return f, nil
}

func (f *Feed) Symbol() string { return f.symbol }

// Price returns the most recently stored value.
func (f *Feed) Price() float64 { return f.price.Load() }

// Register adds l unless a listener with the same ID is already present.
func (f *Feed) Register(l Listener) error {
	if isNil(l) {
		return fmt.Errorf("%w: nil listener", ErrInvalidArgument)
	}
	id := l.ID()
	if id == "" {
		return fmt.Errorf("%w: listener has empty id", ErrInvalidArgument)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.index[id]; ok {
		return nil
	}
	f.index[id] = struct{}{}
	f.listeners = append(f.listeners, l)
	return nil
}

// Remove drops l if registered. Notifications already enqueued for l may
// still be delivered.
func (f *Feed) Remove(l Listener) {
	if isNil(l) {
		return
	}
	f.RemoveID(l.ID())
}

func (f *Feed) RemoveID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.index[id]; !ok {
		return
	}
	delete(f.index, id)
	for i, l := range f.listeners {
		if l.ID() == id {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			break
		}
	}
}

// Listeners returns the registered listeners in registration order.
func (f *Feed) Listeners() []Listener {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Listener, len(f.listeners))
	copy(out, f.listeners)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// Update stores price and schedules a notification for every listener
// registered right now. After Shutdown the price is still stored but
// ErrFeedClosed is returned and nobody is notified.
func (f *Feed) Update(price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.price.Store(price)
	f.metrics.PriceUpdated(f.symbol)

	return f.dispatcher.Submit(f.symbol, price, f.listeners)
}

// Shutdown stops notification delivery, waiting up to timeout for pending
// notifications. Safe to call more than once.
func (f *Feed) Shutdown(timeout time.Duration) ShutdownReport {
	report := f.dispatcher.Shutdown(timeout)
	f.logger.Debug("Feed shut down",
		zap.Bool("drained", report.Drained),
		zap.Int("cancelled", report.Cancelled))
	return report
}

// isNil also catches a nil pointer stored in a non-nil Listener.
func isNil(l Listener) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
