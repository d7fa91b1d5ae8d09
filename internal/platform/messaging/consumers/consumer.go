package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/platform/messaging/producers"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer delivers messages of one topic to a handler
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the ledger event topic in a consumer group. Offsets
// are committed only after the handler succeeded or the message was
// dead-lettered.
type KafkaConsumer struct {
	reader      KafkaReader
	dlq         producers.DeadLetterPublisher
	logger      *slog.Logger
	topic       string
	groupID     string
	maxAttempts int
	retryPeriod time.Duration
}

// NewKafkaConsumer joins groupID on the configured event topic. Messages the
// handler keeps failing on are parked in dlq.
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, groupID string, dlq producers.DeadLetterPublisher) *KafkaConsumer {
	return &KafkaConsumer{
		logger:      logger,
		dlq:         dlq,
		topic:       cfg.EventTopic,
		groupID:     groupID,
		maxAttempts: cfg.MaxHandleAttempts,
		retryPeriod: time.Second,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.EventTopic,
			GroupID:     groupID,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts the read loop in a goroutine; it stops when ctx is done
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			c.wait(ctx)
			continue
		}

		if !c.handle(ctx, handler, msg) {
			c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle retries msg until the handler succeeds or, once the attempts are
// used up, the message is dead-lettered. The next message is not fetched
// meanwhile: committing it would commit past msg. It reports false when ctx
// ended first.
func (c *KafkaConsumer) handle(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		c.logger.Error("Failed to handle message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)

		if attempt >= c.maxAttempts {
			reason := fmt.Sprintf("handler failed after %d attempts: %s", attempt, err)
			dlqErr := c.deadLetter(ctx, msg, reason)
			switch {
			case dlqErr == nil:
				return true
			case errors.Is(dlqErr, producers.ErrDLQDisabled):
				c.logger.Warn("DLQ disabled, dropping message", "partition", msg.Partition, "offset", msg.Offset)
				return true
			default:
				c.logger.Error("Failed to dead-letter message, retrying", "offset", msg.Offset, "error", dlqErr)
			}
		}

		c.wait(ctx)
		if ctx.Err() != nil {
			return false
		}
	}
}

func (c *KafkaConsumer) deadLetter(ctx context.Context, msg kafka.Message, reason string) error {
	if c.dlq == nil {
		return producers.ErrDLQDisabled
	}
	return c.dlq.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason)
}

func (c *KafkaConsumer) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.retryPeriod):
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
