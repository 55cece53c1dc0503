package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"college-erp/common/metrics"

	"github.com/nats-io/nats.go"
)

// KeyHeader carries the partitioning key, the account ID for auth events.
const KeyHeader = "Event-Key"

type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("college-erp"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

// Publish sends value as JSON on the producer subject. It does not wait for the
// server; while disconnected, messages go to the reconnect buffer.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(KeyHeader, key)
	msg.Data = valueBytes

	start := time.Now()
	err = p.conn.PublishMsg(msg)
	p.metrics.Messaging.RecordPublish(ctx, "nats", p.subject, time.Since(start), err)

	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to NATS", "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to NATS", "subject", p.subject, "key", key)
	return nil
}

func (p *Producer) Close() error {
	return p.conn.Drain()
}
