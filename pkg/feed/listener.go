package feed

// Listener receives price updates from a Feed. Identity is ID(): a feed keeps
// at most one registration per ID, and all notifications for one ID are
// delivered in update order.
//
// OnPriceUpdate may return an error or panic. Either is reported as a
// ListenerFailure and never reaches the feed or other listeners.
type Listener interface {
	ID() string
	OnPriceUpdate(symbol string, price float64) error
}

type funcListener struct {
	id string
	fn func(symbol string, price float64) error
}

func (l *funcListener) ID() string { return l.id }

func (l *funcListener) OnPriceUpdate(symbol string, price float64) error {
	return l.fn(symbol, price)
}

// ListenerFunc adapts fn to a Listener identified by id.
func ListenerFunc(id string, fn func(symbol string, price float64) error) Listener {
	return &funcListener{id: id, fn: fn}
}
