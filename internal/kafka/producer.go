package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"college-erp/common/metrics"

	"github.com/IBM/sarama"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewProducer(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewProducerWithClient(producer, topic, logger, m), nil
}

// NewConfig returns the producer settings: acks from all replicas, retries, reported successes.
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "college-erp"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

// NewProducerWithClient wraps an existing SyncProducer.
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  m,
	}
}

// Publish sends value as JSON keyed by key, so events of one account stay ordered.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, "kafka", p.topic, time.Since(start), err)

	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to kafka", "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to kafka", "topic", p.topic, "partition", partition, "offset", offset, "key", key)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
