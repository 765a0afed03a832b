package feed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

func TestBoard_FeedIsCreatedOnce(t *testing.T) {
	b, err := feed.NewBoard(feed.WithWorkers(2))
	require.NoError(t, err)
	defer b.Shutdown(time.Second)

	f1, err := b.Feed("TSLA")
	require.NoError(t, err)
	f2, err := b.Feed("TSLA")
	require.NoError(t, err)
	assert.Same(t, f1, f2)

	_, err = b.Feed("AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, b.Symbols())

	_, ok := b.Lookup("GOOG")
	assert.False(t, ok)
}

func TestBoard_SharedListenerAcrossFeeds(t *testing.T) {
	alice := newRecorder("alice")
	b, err := feed.NewBoard(feed.WithListeners(alice))
	require.NoError(t, err)

	sports, err := b.Feed("SPORTS")
	require.NoError(t, err)
	tech, err := b.Feed("TECH")
	require.NoError(t, err)

	require.NoError(t, sports.Update(1))
	require.NoError(t, tech.Update(2))

	report := b.Shutdown(time.Second)
	assert.True(t, report.Drained)
	assert.ElementsMatch(t, []float64{1, 2}, alice.prices())
}

func TestBoard_ShutdownClosesBoard(t *testing.T) {
	b, err := feed.NewBoard()
	require.NoError(t, err)
	f, err := b.Feed("AMZN")
	require.NoError(t, err)

	b.Shutdown(time.Second)

	_, err = b.Feed("AMZN")
	assert.ErrorIs(t, err, feed.ErrFeedClosed)
	assert.ErrorIs(t, f.Update(1), feed.ErrFeedClosed)
}

func TestBoard_RejectsSharedDispatcher(t *testing.T) {
	d, err := feed.NewDispatcher(feed.DispatcherConfig{Workers: 1})
	require.NoError(t, err)
	defer d.Shutdown(time.Second)

	_, err = feed.NewBoard(feed.WithDispatcher(d))
	assert.ErrorIs(t, err, feed.ErrInvalidArgument)

	_, err = feed.NewBoard(feed.WithWorkers(-1))
	assert.ErrorIs(t, err, feed.ErrInvalidArgument)
}
