package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// PaymentSuccessHandler reacts to settled payments. A non-nil error
// ends the consume session with the offset unmarked, so the message is
// redelivered when the session restarts.
type PaymentSuccessHandler interface {
	HandlePaymentSuccess(ctx context.Context, event PaymentSuccessEvent) error
}

// Consumer runs a consumer group over the payment.success topic.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler PaymentSuccessHandler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewConsumer(brokers []string, groupID string, handler PaymentSuccessHandler, logger *slog.Logger) (*Consumer, error) {
	const op = "kafka.NewConsumer"

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("kafka consumer group created", "brokers", brokers, "group_id", groupID)

	return &Consumer{group: group, handler: handler, logger: logger}, nil
}

// Run blocks until ctx is cancelled. Consume must be re-entered after
// every rebalance, hence the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	topics := []string{TopicPaymentSuccess}
	for {
		if err := c.group.Consume(ctx, topics, c); err != nil {
			c.logger.Error("consume session failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	err := c.group.Close()
	c.wg.Wait()
	return err
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var event PaymentSuccessEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				// Malformed payloads are not retryable, drop them.
				c.logger.Error("unmarshal payment.success event",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				session.MarkMessage(msg, "")
				continue
			}

			if err := c.handler.HandlePaymentSuccess(session.Context(), event); err != nil {
				c.logger.Error("handle payment.success event",
					"payment_id", event.PaymentID,
					"error", err,
				)
				// Marking any later message would commit past this
				// offset. End the session instead; Run re-enters
				// Consume and the message comes back.
				return fmt.Errorf("handle %s offset %d: %w", msg.Topic, msg.Offset, err)
			}

			session.MarkMessage(msg, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
