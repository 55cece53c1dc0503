package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"college-erp/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	Env            string
	// Endpoint is the OTLP gRPC collector address. Export is disabled when empty.
	Endpoint string
	Interval time.Duration
}

type Telemetry struct {
	MeterProvider *metric.MeterProvider
	Metrics       *metrics.Metrics
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*metric.MeterProvider, error) {
	logger.Info("initializing OTel metrics", "endpoint", opts.Endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(opts.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(interval))),
	)

	otel.SetMeterProvider(meterProvider)
	logger.Info("OTel metrics initialized successfully")

	return meterProvider, nil
}

// Init wires the meter provider and the shared collectors. Without an endpoint
// the collectors are created against the global no-op provider.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	var meterProvider *metric.MeterProvider
	if opts.Endpoint != "" {
		var err error
		meterProvider, err = InitMeterProvider(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("OTel export disabled, no collector endpoint configured")
	}

	m, err := metrics.New(ctx, opts.ServiceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	meter := otel.Meter(opts.ServiceName)
	if err := m.Health.RegisterServiceInfo(ctx, meter, opts.ServiceName, opts.ServiceVersion, opts.Env); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	return &Telemetry{
		MeterProvider: meterProvider,
		Metrics:       m,
	}, nil
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
