package generator

import (
	"context"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// for deterministic values
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaDialer interface {
	DialContext(ctx context.Context, network, address string) (KafkaConn, error)
}

type KafkaConn interface {
	Controller() (kafka.Broker, error)
	Close() error
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// NewRealRand is not safe for concurrent use; the generator loop is its only caller.
func NewRealRand(seed int64) Rand { return rand.New(rand.NewSource(seed)) }

// kafkaDialer adapts *kafka.Dialer, whose DialContext returns a concrete *kafka.Conn
type kafkaDialer struct{ *kafka.Dialer }

func NewKafkaDialer(timeout time.Duration) KafkaDialer {
	return &kafkaDialer{Dialer: &kafka.Dialer{Timeout: timeout}}
}

func (d *kafkaDialer) DialContext(ctx context.Context, network, address string) (KafkaConn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
