package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business counters of the registration service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	accountsRegistered    metric.Int64Counter
	profilesReused        metric.Int64Counter
	registrationsRejected metric.Int64Counter
	signIns               metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.accountsRegistered, err = meter.Int64Counter(
		"college_erp.accounts.registered",
		metric.WithDescription("Total number of accounts registered"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	m.profilesReused, err = meter.Int64Counter(
		"college_erp.profiles.reused",
		metric.WithDescription("Registrations that linked to an already existing profile"),
		metric.WithUnit("{profile}"),
	)
	if err != nil {
		return nil, err
	}

	m.registrationsRejected, err = meter.Int64Counter(
		"college_erp.registrations.rejected",
		metric.WithDescription("Signup requests rejected before any write"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.signIns, err = meter.Int64Counter(
		"college_erp.signins",
		metric.WithDescription("Sign-in attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordRegistration(ctx context.Context, role string, profileCreated bool) {
	if m == nil || m.accountsRegistered == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("role", role))
	m.accountsRegistered.Add(ctx, 1, attrs)
	if !profileCreated {
		m.profilesReused.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordRegistrationRejected(ctx context.Context, reason string) {
	if m != nil && m.registrationsRejected != nil {
		m.registrationsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *Metrics) RecordSignIn(ctx context.Context, success bool) {
	if m == nil || m.signIns == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.signIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
