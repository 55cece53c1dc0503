package metrics

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type DatabaseMetrics struct {
	connectionsOpen    metric.Int64ObservableGauge
	connectionsIdle    metric.Int64ObservableGauge
	connectionsInUse   metric.Int64ObservableGauge
	maxOpenConnections metric.Int64ObservableGauge
	queryDuration      metric.Float64Histogram
	queryErrors        metric.Int64Counter
	txOutcomes         metric.Int64Counter
	db                 *sql.DB
}

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	dm := &DatabaseMetrics{}

	var err error

	gauges := []struct {
		dst  *metric.Int64ObservableGauge
		name string
		desc string
	}{
		{&dm.connectionsOpen, "db.connections.open", "Current number of open database connections"},
		{&dm.connectionsIdle, "db.connections.idle", "Current number of idle database connections"},
		{&dm.connectionsInUse, "db.connections.in_use", "Current number of in-use database connections"},
		{&dm.maxOpenConnections, "db.connections.max_open", "Maximum number of open connections allowed"},
	}
	for _, g := range gauges {
		*g.dst, err = meter.Int64ObservableGauge(g.name,
			metric.WithDescription(g.desc),
			metric.WithUnit("{connection}"),
		)
		if err != nil {
			return nil, err
		}
	}

	dm.queryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	)
	if err != nil {
		return nil, err
	}

	dm.queryErrors, err = meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	dm.txOutcomes, err = meter.Int64Counter(
		"db.transactions",
		metric.WithDescription("Finished transactions by outcome"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, err
	}

	return dm, nil
}

// RegisterDB observes connection pool stats of db on every collection.
// Note: service_name label is automatically added from resource attributes (service.name)
func (dm *DatabaseMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	dm.db = db

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if dm.db == nil {
				return nil
			}

			stats := dm.db.Stats()

			observer.ObserveInt64(dm.connectionsOpen, int64(stats.OpenConnections))
			observer.ObserveInt64(dm.connectionsIdle, int64(stats.Idle))
			observer.ObserveInt64(dm.connectionsInUse, int64(stats.InUse))
			observer.ObserveInt64(dm.maxOpenConnections, int64(stats.MaxOpenConnections))

			return nil
		},
		dm.connectionsOpen,
		dm.connectionsIdle,
		dm.connectionsInUse,
		dm.maxOpenConnections,
	)

	return err
}

func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("table", table),
	}

	dm.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil && dm.queryErrors != nil {
		errAttrs := append(attrs, attribute.String("error", err.Error()))
		dm.queryErrors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}

// RecordTransaction counts a committed (err == nil) or rolled back transaction.
func (dm *DatabaseMetrics) RecordTransaction(ctx context.Context, name string, err error) {
	if dm == nil || dm.txOutcomes == nil {
		return
	}

	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	dm.txOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transaction", name),
		attribute.String("outcome", outcome),
	))
}
