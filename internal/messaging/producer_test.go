package messaging_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"college-erp/common/metrics"
	"college-erp/internal/messaging"
	"college-erp/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testnats.Shutdown()
	os.Exit(code)
}

func TestProducer_Publish(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	const subject = "college-erp.auth.events.test"

	sub, err := natsContainer.Connect(t).SubscribeSync(subject)
	require.NoError(t, err)

	producer, err := messaging.NewProducer(natsContainer.URL, subject, logger, metrics.NewMock())
	require.NoError(t, err)
	defer producer.Close()

	payload := map[string]string{"type": "auth.signed_in", "email": "a@x.com"}
	require.NoError(t, producer.Publish(context.Background(), "account-1", payload))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "account-1", msg.Header.Get(messaging.KeyHeader))

	var got map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, payload, got)
}

func TestProducer_ConnectFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := messaging.NewProducer("nats://127.0.0.1:1", "unused", logger, metrics.NewMock())
	assert.Error(t, err)
}

func TestProducer_MarshalFailure(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer, err := messaging.NewProducer(natsContainer.URL, "unused", logger, metrics.NewMock())
	require.NoError(t, err)
	defer producer.Close()

	err = producer.Publish(context.Background(), "k", make(chan int))
	assert.Error(t, err)
}

func TestProducer_PublishDoesNotBlockWhileServerDown(t *testing.T) {
	natsContainer := testnats.SetupNATS(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer, err := messaging.NewProducer(natsContainer.URL, "college-erp.auth.events.outage", logger, metrics.NewMock())
	require.NoError(t, err)
	t.Cleanup(func() { producer.Close() })

	stopTimeout := 5 * time.Second
	require.NoError(t, natsContainer.Container.Stop(context.Background(), &stopTimeout))

	start := time.Now()
	err = producer.Publish(context.Background(), "account-1", map[string]string{"type": "auth.signed_in"})

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
