package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/listeners"
)

type demoOptions struct {
	Symbol  string
	Workers int
	Timeout time.Duration
	Pause   time.Duration
	Fail    bool
}

var errPushGateway = errors.New("push gateway unavailable")

// lockedWriter lets several console listeners share one output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// runDemo drives one feed through the scripted session: three updates, a
// pause, MobileApp leaves, one more update, shutdown.
func runDemo(w io.Writer, opts demoOptions, logger *zap.Logger) (feed.ShutdownReport, error) {
	out := &lockedWriter{w: w}
	stats := listeners.NewStats("Analytics")
	f, err := feed.New(opts.Symbol,
		feed.WithWorkers(opts.Workers),
		feed.WithLogger(logger),
		feed.WithListeners(
			listeners.NewConsole("EmailAlert", out),
			listeners.NewConsole("MobileApp", out),
			stats,
		),
	)
	if err != nil {
		return feed.ShutdownReport{}, err
	}

	if opts.Fail {
		err := f.Register(feed.ListenerFunc("FlakyPush", func(symbol string, price float64) error {
			if price > 3300 {
				panic(fmt.Sprintf("cannot push %s@%.2f", symbol, price))
			}
			return errPushGateway
		}))
		if err != nil {
			f.Shutdown(0)
			return feed.ShutdownReport{}, err
		}
	}

	for _, p := range []float64{3300.55, 3310.75, 3295.10} {
		if err := f.Update(p); err != nil {
			f.Shutdown(0)
			return feed.ShutdownReport{}, err
		}
	}
	time.Sleep(opts.Pause)

	f.RemoveID("MobileApp")
	if err := f.Update(3301.00); err != nil {
		f.Shutdown(0)
		return feed.ShutdownReport{}, err
	}

	report := f.Shutdown(opts.Timeout)
	if s, ok := stats.Summary(opts.Symbol); ok {
		fmt.Fprintf(out, "[Analytics] %s: %d updates, min %.2f, max %.2f, last %.2f\n",
			s.Symbol, s.Count, s.Min, s.Max, s.Last)
	}
	return report, nil
}
