package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	readyAttempts = 5
	readyBackoff  = 200 * time.Millisecond
)

var ErrTopicNotReady = errors.New("topic not ready")

type TopicCreator struct {
	logger     *zap.Logger
	dialer     KafkaDialer
	clock      Clock
	partitions int
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, clock Clock, partitions int) *TopicCreator {
	if partitions <= 0 {
		partitions = 1
	}
	return &TopicCreator{
		logger:     logger,
		dialer:     dialer,
		clock:      clock,
		partitions: partitions,
	}
}

// Create asks the controller for topicName and waits until it has
// partitions. An "already exists" answer from the controller is fine.
func (tc *TopicCreator) Create(ctx context.Context, brokers []string, topicName string) error {
	var conn KafkaConn
	err := errors.New("no brokers configured")

	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		tc.logger.Debug("Broker dial failed", zap.String("broker", addr), zap.Error(err))
	}
	if err != nil {
		return fmt.Errorf("dial brokers: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("lookup controller: %w", err)
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", controllerAddr, err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     tc.partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	} else {
		tc.logger.Info("Topic creation request sent", zap.String("topic", topicName), zap.Int("partitions", tc.partitions))
	}

	return tc.waitForTopic(conn, topicName)
}

func (tc *TopicCreator) waitForTopic(conn KafkaConn, topicName string) error {
	tc.logger.Info("Waiting for topic initialization...", zap.String("topic", topicName))
	for i := 0; i < readyAttempts; i++ {
		tc.clock.Sleep(readyBackoff)
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic is ready", zap.Int("partitions", len(partitions)))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTopicNotReady, topicName)
}
