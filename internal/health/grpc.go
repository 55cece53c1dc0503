package health

import (
	"context"
	"log/slog"
	"time"

	"college-erp/common/metrics"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall status.
const ServiceName = "college_erp.v1.Registration"

// NewGrpcServer returns a gRPC server exposing the standard health service,
// instrumented with the shared gRPC metrics.
func NewGrpcServer(m *metrics.Metrics) (*grpc.Server, *grpchealth.Server) {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(m.Grpc.UnaryServerInterceptor()))

	healthServer := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return server, healthServer
}

// Monitor mirrors database reachability into the gRPC health status.
type Monitor struct {
	db       Pinger
	server   *grpchealth.Server
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
}

func NewMonitor(db Pinger, server *grpchealth.Server, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		db:       db,
		server:   server,
		metrics:  m,
		logger:   logger,
		interval: interval,
	}
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check pings the database once and updates the serving status.
func (m *Monitor) Check(ctx context.Context) bool {
	err := checkDatabase(ctx, m.db, m.metrics)

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		m.logger.WarnContext(ctx, "database health check failed", "error", err)
	}
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)

	return err == nil
}
