package listeners

import (
	"fmt"
	"io"
	"sync"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

var _ feed.Listener = (*Console)(nil)

// Console prints one line per update, e.g. "[EmailAlert] AMZN price updated to 3300.55".
type Console struct {
	name string
	mu   sync.Mutex // one writer, many feeds
	out  io.Writer
}

func NewConsole(name string, out io.Writer) *Console {
	return &Console{name: name, out: out}
}

func (c *Console) ID() string { return c.name }

func (c *Console) OnPriceUpdate(symbol string, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "[%s] %s price updated to %.2f\n", c.name, symbol, price)
	return err
}
