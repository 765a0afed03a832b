package feed

// Metrics receives feed and dispatcher events. Implementations must be safe
// for concurrent use and must not block.
type Metrics interface {
	PriceUpdated(symbol string)
	NotificationDelivered(symbol string)
	NotificationFailed(symbol string)
	NotificationCancelled(symbol string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) PriceUpdated(string)          {}
func (NoopMetrics) NotificationDelivered(string) {}
func (NoopMetrics) NotificationFailed(string)    {}
func (NoopMetrics) NotificationCancelled(string) {}
