package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"inventory-transfer/internal/config"
	"inventory-transfer/internal/core"
)

// Consumer reads low-stock events from Kafka and hands them to a Notifier.
// It backs the standalone notifier binary.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler *lowStockHandler
	topics  []string
	logger  *zap.Logger
}

func NewConsumer(cfg *config.Config, target Notifier, logger *zap.Logger) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.KafkaClientID
	sc.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Return.Errors = true
	sc.Version = sarama.V2_8_0_0
	sc.Net.DialTimeout = 10 * time.Second

	group, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return &Consumer{
		group:   group,
		handler: &lowStockHandler{target: target, logger: logger},
		topics:  []string{cfg.KafkaTopicLowStock},
		logger:  logger,
	}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started", zap.Strings("topics", c.topics))
	for {
		if err := c.group.Consume(ctx, c.topics, c.handler); err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type lowStockHandler struct {
	target Notifier
	logger *zap.Logger
}

func (h *lowStockHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *lowStockHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *lowStockHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session.Context(), msg); err != nil {
				h.logger.Error("Failed to handle low-stock message",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle decodes one message. Messages of other event types are skipped.
func (h *lowStockHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if eventType(msg.Headers) != EventTypeLowStock {
		return nil
	}
	var evt core.LowStockDetected
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return h.target.Notify(ctx, evt)
}

func eventType(headers []*sarama.RecordHeader) string {
	for _, h := range headers {
		if h != nil && string(h.Key) == "event-type" {
			return string(h.Value)
		}
	}
	return ""
}
