package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the pricefeed binaries
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level       string `mapstructure:"level"`    // debug, info, warn, error
	Encoding    string `mapstructure:"encoding"` // json or console
	Development bool   `mapstructure:"development"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// FeedConfig tunes the notification dispatcher behind every price feed.
type FeedConfig struct {
	Workers         int           `mapstructure:"workers"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ProcessorConfig struct {
	Symbols []string `mapstructure:"symbols"` // empty accepts every symbol
}

type GatewayConfig struct {
	ValidTickers    []string `mapstructure:"valid_tickers"`
	SnapshotWorkers int      `mapstructure:"snapshot_workers"`
}

type GeneratorConfig struct {
	Tickers    []string           `mapstructure:"tickers"`
	BasePrices map[string]float64 `mapstructure:"base_prices"`
	Interval   time.Duration      `mapstructure:"interval"`
	Partitions int                `mapstructure:"partitions"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the metrics listener
}

var defaultTickers = []string{"AAPL", "GOOG", "TSLA", "AMZN"}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	// .env only seeds the process environment; real env vars win
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.development", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_id", "stock-processor-group")

	v.SetDefault("feed.workers", 4)
	v.SetDefault("feed.shutdown_timeout", 5*time.Second)

	v.SetDefault("processor.symbols", []string{})

	v.SetDefault("gateway.valid_tickers", defaultTickers)
	v.SetDefault("gateway.snapshot_workers", 8)

	v.SetDefault("generator.tickers", defaultTickers)
	v.SetDefault("generator.base_prices", map[string]float64{
		"AAPL": 150.0, "GOOG": 2800.0, "TSLA": 700.0, "AMZN": 3400.0,
	})
	v.SetDefault("generator.interval", 100*time.Millisecond)
	v.SetDefault("generator.partitions", 4)

	v.SetDefault("metrics.addr", ":9090")

	// "feed.workers" -> FEED_WORKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys only resolve from flat env vars once bound explicitly
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding", "logger.development")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.brokers", "kafka.topic", "kafka.group_id")
	bindEnv(v, "feed.workers", "feed.shutdown_timeout")
	bindEnv(v, "processor.symbols")
	bindEnv(v, "gateway.valid_tickers", "gateway.snapshot_workers")
	bindEnv(v, "generator.tickers", "generator.interval", "generator.partitions")
	bindEnv(v, "metrics.addr")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the binaries cannot start without.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Feed.Workers <= 0 {
		return fmt.Errorf("feed workers must be positive, got %d", c.Feed.Workers)
	}
	if c.Feed.ShutdownTimeout < 0 {
		return fmt.Errorf("feed shutdown timeout cannot be negative")
	}
	if c.Gateway.SnapshotWorkers <= 0 {
		return fmt.Errorf("gateway snapshot workers must be positive, got %d", c.Gateway.SnapshotWorkers)
	}
	for _, t := range c.Generator.Tickers {
		if _, ok := c.Generator.BasePrices[strings.ToLower(t)]; ok {
			continue
		}
		if _, ok := c.Generator.BasePrices[t]; !ok {
			return fmt.Errorf("generator ticker %s has no base price", t)
		}
	}
	return nil
}

// BasePrice looks a ticker up in Generator.BasePrices. Viper lower-cases map
// keys, so both spellings are tried.
func (c *Config) BasePrice(ticker string) float64 {
	if p, ok := c.Generator.BasePrices[ticker]; ok {
		return p
	}
	return c.Generator.BasePrices[strings.ToLower(ticker)]
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
