package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventory-transfer/internal/config"
	"inventory-transfer/internal/core"
)

// EventTypeLowStock is the event-type header of published low-stock events.
const EventTypeLowStock = "LowStockDetected"

// KafkaNotifier publishes low-stock events to a Kafka topic, keyed by stock id so
// events for one row stay ordered within a partition.
type KafkaNotifier struct {
	producer   sarama.SyncProducer
	logger     *zap.Logger
	topic      string
	maxRetries int
	baseDelay  time.Duration
}

// NewKafkaNotifier creates an idempotent synchronous producer.
func NewKafkaNotifier(cfg *config.Config, logger *zap.Logger) (*KafkaNotifier, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.KafkaClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = cfg.KafkaRetries
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaNotifier(producer, cfg.KafkaTopicLowStock, cfg.KafkaRetries, logger), nil
}

func newKafkaNotifier(producer sarama.SyncProducer, topic string, maxRetries int, logger *zap.Logger) *KafkaNotifier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &KafkaNotifier{
		producer:   producer,
		logger:     logger,
		topic:      topic,
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
	}
}

func (n *KafkaNotifier) message(evt core.LowStockDetected) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(evt.StockID, 10)),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(EventTypeLowStock)},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}

// Notify publishes evt, retrying with exponential backoff.
func (n *KafkaNotifier) Notify(ctx context.Context, evt core.LowStockDetected) error {
	msg, err := n.message(evt)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < n.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		partition, offset, err := n.producer.SendMessage(msg)
		if err == nil {
			n.logger.Info("Low-stock event published to Kafka",
				zap.String("topic", n.topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.Int64("stock_id", evt.StockID),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err
		n.logger.Warn("Failed to publish low-stock event, retrying",
			zap.String("topic", n.topic),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", n.maxRetries),
		)

		if attempt < n.maxRetries-1 {
			delay := n.baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("failed to publish low-stock event after %d attempts: %w", n.maxRetries, lastErr)
}

func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		return n.producer.Close()
	}
	return nil
}
