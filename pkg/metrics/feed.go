package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

const namespace = "pricefeed"

var _ feed.Metrics = (*FeedCollector)(nil)

// FeedCollector exports feed and dispatcher events as Prometheus counters.
type FeedCollector struct {
	updates   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	cancelled *prometheus.CounterVec
}

// NewFeedCollector registers its counters with reg.
func NewFeedCollector(reg prometheus.Registerer) *FeedCollector {
	fc := &FeedCollector{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "updates_total",
			Help:      "count of price updates applied to a feed",
		}, []string{"symbol"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_delivered_total",
			Help:      "count of listener notifications that completed without error",
		}, []string{"symbol"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_failed_total",
			Help:      "count of listener notifications that returned an error or panicked",
		}, []string{"symbol"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_cancelled_total",
			Help:      "count of listener notifications dropped by a timed out shutdown",
		}, []string{"symbol"}),
	}
	reg.MustRegister(fc.updates, fc.delivered, fc.failed, fc.cancelled)
	return fc
}

func (fc *FeedCollector) PriceUpdated(symbol string) {
	fc.updates.WithLabelValues(symbol).Inc()
}

func (fc *FeedCollector) NotificationDelivered(symbol string) {
	fc.delivered.WithLabelValues(symbol).Inc()
}

func (fc *FeedCollector) NotificationFailed(symbol string) {
	fc.failed.WithLabelValues(symbol).Inc()
}

func (fc *FeedCollector) NotificationCancelled(symbol string) {
	fc.cancelled.WithLabelValues(symbol).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
