package testnats

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedContainer *NATSContainer
	sharedOnce      sync.Once
)

type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts one NATS server per test binary.
//
// Usage:
//
//	func TestPublisher(t *testing.T) {
//	    natsContainer := testnats.SetupSharedNATS(t)
//	    conn := natsContainer.Connect(t)
//	    // ...
//	}
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	sharedOnce.Do(func() {
		container, err := start(context.Background())
		require.NoError(t, err)
		sharedContainer = container
	})
	require.NotNil(t, sharedContainer, "shared nats container failed to start")

	return sharedContainer
}

// SetupNATS starts a dedicated NATS server terminated when the test ends.
// Use it for tests that stop or disrupt the server.
func SetupNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	container, err := start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Container.Terminate(context.Background()) })

	return container
}

func start(ctx context.Context) (*NATSContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
	}

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	host, err := natsContainer.Host(ctx)
	if err != nil {
		return nil, err
	}

	port, err := natsContainer.MappedPort(ctx, "4222")
	if err != nil {
		return nil, err
	}

	return &NATSContainer{
		Container: natsContainer,
		URL:       "nats://" + host + ":" + port.Port(),
	}, nil
}

// Connect opens a subscriber connection closed at the end of the test.
func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

// Shutdown releases the shared container if one was started.
func Shutdown() {
	if sharedContainer != nil {
		_ = sharedContainer.Container.Terminate(context.Background())
	}
}
