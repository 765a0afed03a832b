package metrics_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
	"github.com/shubham-shewale/pricefeed/pkg/metrics"
)

func TestFeedCollector_CountsDeliveriesAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	fc := metrics.NewFeedCollector(reg)

	f, err := feed.New("AMZN", feed.WithMetrics(fc), feed.WithListeners(
		feed.ListenerFunc("ok", func(string, float64) error { return nil }),
		feed.ListenerFunc("bad", func(string, float64) error { return errors.New("nope") }),
	))
	require.NoError(t, err)

	require.NoError(t, f.Update(1))
	require.NoError(t, f.Update(2))
	require.True(t, f.Shutdown(time.Second).Drained)

	expected := `
# HELP pricefeed_feed_notifications_failed_total count of listener notifications that returned an error or panicked
# TYPE pricefeed_feed_notifications_failed_total counter
pricefeed_feed_notifications_failed_total{symbol="AMZN"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "pricefeed_feed_notifications_failed_total"))

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `pricefeed_feed_updates_total{symbol="AMZN"} 2`)
	assert.Contains(t, body, `pricefeed_feed_notifications_delivered_total{symbol="AMZN"} 2`)
}

func TestFeedCollector_CountsCancelled(t *testing.T) {
	reg := prometheus.NewRegistry()
	fc := metrics.NewFeedCollector(reg)

	fc.NotificationCancelled("TSLA")
	fc.NotificationCancelled("TSLA")

	n, err := testutil.GatherAndCount(reg, "pricefeed_feed_notifications_cancelled_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
