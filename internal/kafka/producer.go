package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// Producer publishes lifecycle events. Publishing is fire-and-forget
// from the caller's point of view: errors are logged, never returned
// into the request path.
type Producer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) (*Producer, error) {
	const op = "kafka.NewProducer"

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("kafka producer connected", "brokers", brokers)

	return &Producer{producer: p, logger: logger}, nil
}

func (p *Producer) publish(topic, key string, event any) {
	const op = "kafka.Producer.publish"

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", "op", op, "topic", topic, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("publish event", "op", op, "topic", topic, "key", key, "error", err)
		return
	}

	p.logger.Debug("event published",
		"topic", topic,
		"key", key,
		"partition", partition,
		"offset", offset,
	)
}

func (p *Producer) ReservationCreated(e ReservationCreatedEvent) {
	p.publish(TopicReservationCreated, e.ReservationID, e)
}

func (p *Producer) PaymentSuccess(e PaymentSuccessEvent) {
	p.publish(TopicPaymentSuccess, e.PaymentID, e)
}

func (p *Producer) PaymentFailed(e PaymentFailedEvent) {
	p.publish(TopicPaymentFailed, e.PaymentID, e)
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
