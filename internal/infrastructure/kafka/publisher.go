package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

const DefaultTopic = "exchange-events"

// Publisher ships exchange events to a Kafka topic, keyed by exchange id so
// one exchange's events stay ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewConfig returns the producer settings the publisher relies on.
func NewConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// Dial connects a sync producer to brokers.
func Dial(brokers []string, topic string, logger zerolog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return NewPublisher(producer, topic, logger), nil
}

func NewPublisher(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("service", "kafka").Logger(),
	}
}

func (p *Publisher) Publish(ctx context.Context, event *exchange.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ExchangeID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(event.Kind)},
			{Key: []byte("event-id"), Value: []byte(event.EventID.String())},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: send %s: %w", event.Kind, err)
	}
	p.logger.Debug().
		Str("exchangeId", event.ExchangeID.String()).
		Str("kind", string(event.Kind)).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

var _ exchange.EventPublisher = (*Publisher)(nil)
