package feed

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ef-ds/deque"
	"go.uber.org/zap"
)

// DispatcherConfig configures a Dispatcher. Zero values fall back to defaults.
type DispatcherConfig struct {
	Workers   int
	Logger    *zap.Logger
	Metrics   Metrics
	OnFailure func(*ListenerFailure)
}

// ShutdownReport is the outcome of a Shutdown call. A timeout is not an
// error: Drained is false and Cancelled counts notifications that never ran.
type ShutdownReport struct {
	Drained   bool
	Cancelled int
}

// Dispatcher runs listener notifications on a fixed set of shard workers.
// Every listener ID hashes to one shard and each shard is FIFO, so a listener
// sees notifications in submission order while distinct shards run in
// parallel.
type Dispatcher struct {
	shards    []*shard
	logger    *zap.Logger
	metrics   Metrics
	onFailure func(*ListenerFailure)

	mu     sync.RWMutex // guards closed against concurrent Submit
	closed bool

	quit chan struct{}
	wg   sync.WaitGroup

	shutdownOnce sync.Once
	report       ShutdownReport
}

type task struct {
	listener Listener
	symbol   string
	price    float64
}

type shard struct {
	mu      sync.Mutex
	queue   deque.Deque
	closing bool
	notify  chan struct{} // capacity 1, wakes the worker without blocking producers
}

func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidArgument, cfg.Workers)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics{}
	}

	d := &Dispatcher{
		shards:    make([]*shard, cfg.Workers),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		onFailure: cfg.OnFailure,
		quit:      make(chan struct{}),
	}
	for i := range d.shards {
		d.shards[i] = &shard{notify: make(chan struct{}, 1)}
		d.wg.Add(1)
		go d.work(d.shards[i])
	}
	return d, nil
}

// Submit enqueues one notification per listener and returns immediately.
func (d *Dispatcher) Submit(symbol string, price float64, listeners []Listener) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrFeedClosed
	}
	for _, l := range listeners {
		d.shards[shardFor(l.ID(), len(d.shards))].push(task{listener: l, symbol: symbol, price: price})
	}
	return nil
}

// Shutdown stops accepting work and waits up to timeout for queued and
// running notifications. Anything still queued after the timeout is dropped.
// Only the first call does the work; later calls return its report.
func (d *Dispatcher) Shutdown(timeout time.Duration) ShutdownReport {
	d.shutdownOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		for _, s := range d.shards {
			s.close()
		}

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
			d.report = ShutdownReport{Drained: true}
		case <-timer.C:
			close(d.quit)
			d.report = ShutdownReport{Cancelled: d.discard()}
			d.logger.Warn("Notification drain timed out, pending notifications cancelled",
				zap.Duration("timeout", timeout),
				zap.Int("cancelled", d.report.Cancelled))
		}
	})
	return d.report
}

func (d *Dispatcher) work(s *shard) {
	defer d.wg.Done()

	for {
		t, ok, exit := s.pop(d.quit)
		if exit {
			return
		}
		if ok {
			d.deliver(t)
			continue
		}

		select {
		case <-s.notify:
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) deliver(t task) {
	err := invoke(t)
	if err == nil {
		d.metrics.NotificationDelivered(t.symbol)
		return
	}

	failure := err.(*ListenerFailure)
	d.metrics.NotificationFailed(t.symbol)
	d.logger.Error("Listener notification failed",
		zap.String("symbol", failure.Symbol),
		zap.String("listener", failure.ListenerID),
		zap.Float64("price", failure.Price),
		zap.Bool("panicked", failure.Panicked),
		zap.Error(failure.Err))

	if d.onFailure != nil {
		d.reportFailure(failure)
	}
}

func (d *Dispatcher) reportFailure(failure *ListenerFailure) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Failure handler panicked", zap.Any("panic", r))
		}
	}()
	d.onFailure(failure)
}

// invoke is the per-task error boundary.
func invoke(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerFailure{
				Symbol:     t.symbol,
				ListenerID: t.listener.ID(),
				Price:      t.price,
				Panicked:   true,
				Err:        fmt.Errorf("%v", r),
			}
		}
	}()

	if cause := t.listener.OnPriceUpdate(t.symbol, t.price); cause != nil {
		return &ListenerFailure{
			Symbol:     t.symbol,
			ListenerID: t.listener.ID(),
			Price:      t.price,
			Err:        cause,
		}
	}
	return nil
}

func (d *Dispatcher) discard() int {
	cancelled := 0
	for _, s := range d.shards {
		for _, t := range s.drain() {
			d.metrics.NotificationCancelled(t.symbol)
			cancelled++
		}
	}
	return cancelled
}

func (s *shard) push(t task) {
	s.mu.Lock()
	s.queue.PushBack(t)
	s.mu.Unlock()

	s.wake()
}

// pop returns the next task. exit is set once the shard is closed and empty,
// or once quit is closed; a task popped here counts as started.
func (s *shard) pop(quit <-chan struct{}) (t task, ok bool, exit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-quit:
		return task{}, false, true
	default:
	}

	v, ok := s.queue.PopFront()
	if ok {
		return v.(task), true, false
	}
	return task{}, false, s.closing
}

func (s *shard) close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.wake()
}

func (s *shard) drain() []task {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]task, 0, s.queue.Len())
	for {
		v, ok := s.queue.PopFront()
		if !ok {
			return pending
		}
		pending = append(pending, v.(task))
	}
}

func (s *shard) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func shardFor(id string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(shards))
}
