package listeners_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shubham-shewale/pricefeed/pkg/listeners"
)

func TestConsole_Format(t *testing.T) {
	var buf bytes.Buffer
	c := listeners.NewConsole("EmailAlert", &buf)

	require.NoError(t, c.OnPriceUpdate("AMZN", 3300.55))
	require.NoError(t, c.OnPriceUpdate("AMZN", 3301))

	assert.Equal(t, "[EmailAlert] AMZN price updated to 3300.55\n[EmailAlert] AMZN price updated to 3301.00\n", buf.String())
	assert.Equal(t, "EmailAlert", c.ID())
}

func TestStats_TracksRange(t *testing.T) {
	s := listeners.NewStats("Analytics")
	for _, p := range []float64{3300.55, 3310.75, 3295.10, 3301.00} {
		require.NoError(t, s.OnPriceUpdate("AMZN", p))
	}
	require.NoError(t, s.OnPriceUpdate("AAPL", 150))

	sum, ok := s.Summary("AMZN")
	require.True(t, ok)
	assert.Equal(t, listeners.Summary{Symbol: "AMZN", Count: 4, Min: 3295.10, Max: 3310.75, Last: 3301.00}, sum)

	_, ok = s.Summary("TSLA")
	assert.False(t, ok)

	all := s.Summaries()
	require.Len(t, all, 2)
	assert.Equal(t, "AAPL", all[0].Symbol)
}

func TestThreshold_ReportsCrossingsOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	th := listeners.NewThreshold("MobileApp", map[string]listeners.Band{"AMZN": {Low: 3290, High: 3310}}, zap.New(core))

	for _, p := range []float64{3300, 3311, 3320, 3305, 3280} {
		require.NoError(t, th.OnPriceUpdate("AMZN", p))
	}
	require.NoError(t, th.OnPriceUpdate("TSLA", 1e9))

	assert.Equal(t, 2, th.Alerts())
	assert.Equal(t, 2, logs.FilterMessage("Price left band").Len())
	assert.Equal(t, 1, logs.FilterMessage("Price back in band").Len())
}

func TestThreshold_RejectsNaN(t *testing.T) {
	th := listeners.NewThreshold("x", nil, zap.NewNop())
	assert.ErrorIs(t, th.OnPriceUpdate("AMZN", math.NaN()), listeners.ErrInvalidPrice)
	assert.ErrorIs(t, th.OnPriceUpdate("AMZN", math.Inf(1)), listeners.ErrInvalidPrice)
}
