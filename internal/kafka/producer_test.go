package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"college-erp/common/metrics"
	"college-erp/internal/kafka"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Publish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("SendsJSON", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, kafka.NewConfig())
		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got map[string]string
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got["type"] != "auth.signed_out" {
				return errors.New("unexpected event type " + got["type"])
			}
			return nil
		})

		producer := kafka.NewProducerWithClient(mock, "auth-events", logger, metrics.NewMock())
		err := producer.Publish(context.Background(), "account-1", map[string]string{"type": "auth.signed_out"})
		require.NoError(t, err)
		require.NoError(t, producer.Close())
	})

	t.Run("BrokerError", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, kafka.NewConfig())
		mock.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		producer := kafka.NewProducerWithClient(mock, "auth-events", logger, metrics.NewMock())
		err := producer.Publish(context.Background(), "account-1", map[string]string{"type": "auth.signed_in"})
		assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
		require.NoError(t, producer.Close())
	})

	t.Run("MarshalError", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, kafka.NewConfig())

		producer := kafka.NewProducerWithClient(mock, "auth-events", logger, metrics.NewMock())
		err := producer.Publish(context.Background(), "account-1", make(chan int))
		assert.Error(t, err)
		require.NoError(t, producer.Close())
	})
}

func TestNewConfig(t *testing.T) {
	cfg := kafka.NewConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.NoError(t, cfg.Validate())
}
