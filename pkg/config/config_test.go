package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Feed.Workers)
	assert.Equal(t, 5*time.Second, cfg.Feed.ShutdownTimeout)
	assert.Equal(t, 8, cfg.Gateway.SnapshotWorkers)
	assert.Contains(t, cfg.Gateway.ValidTickers, "AMZN")
	assert.Equal(t, 3400.0, cfg.BasePrice("AMZN"))
	assert.Equal(t, 100*time.Millisecond, cfg.Generator.Interval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FEED_WORKERS", "2")
	t.Setenv("FEED_SHUTDOWN_TIMEOUT", "1500ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOGGER_LEVEL", "debug")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Feed.Workers)
	assert.Equal(t, 1500*time.Millisecond, cfg.Feed.ShutdownTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_RejectsBadFeedWorkers(t *testing.T) {
	t.Setenv("FEED_WORKERS", "0")

	_, err := load(viper.New())
	assert.ErrorContains(t, err, "feed workers")
}

func TestValidate_MissingBasePrice(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	cfg.Generator.Tickers = append(cfg.Generator.Tickers, "NFLX")
	assert.ErrorContains(t, cfg.Validate(), "NFLX")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
