package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "patchpal"

// Abandon reasons recorded on patchpal.requests.abandoned.
const (
	ReasonDisconnect = "disconnect"
	ReasonShutdown   = "shutdown"
	ReasonTimeout    = "timeout"
	ReasonViolation  = "protocol_violation"
)

// Metrics holds all broker metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	SubmissionsReceived  metric.Int64Counter
	SubmissionsMalformed metric.Int64Counter
	DecisionsSent        metric.Int64Counter
	RequestsAbandoned    metric.Int64Counter
	QueuePending         metric.Int64UpDownCounter
	DecisionLatency      metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates all metric instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SubmissionsReceived, err = meter.Int64Counter("patchpal.submissions.received",
		metric.WithDescription("Submissions decoded and queued for review"))
	if err != nil {
		return nil, err
	}

	m.SubmissionsMalformed, err = meter.Int64Counter("patchpal.submissions.malformed",
		metric.WithDescription("Inbound messages dropped as undecodable"))
	if err != nil {
		return nil, err
	}

	m.DecisionsSent, err = meter.Int64Counter("patchpal.decisions.sent",
		metric.WithDescription("Decisions written back to submitters"))
	if err != nil {
		return nil, err
	}

	m.RequestsAbandoned, err = meter.Int64Counter("patchpal.requests.abandoned",
		metric.WithDescription("Requests that ended without a delivered decision"))
	if err != nil {
		return nil, err
	}

	m.QueuePending, err = meter.Int64UpDownCounter("patchpal.queue.pending",
		metric.WithDescription("Requests waiting for a decision"))
	if err != nil {
		return nil, err
	}

	m.DecisionLatency, err = meter.Float64Histogram("patchpal.decision.latency_seconds",
		metric.WithDescription("Time from queueing to decision"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Received records a queued submission.
func (m *Metrics) Received(ctx context.Context) {
	if m == nil {
		return
	}
	m.SubmissionsReceived.Add(ctx, 1)
	m.QueuePending.Add(ctx, 1)
}

// Malformed records a dropped inbound message.
func (m *Metrics) Malformed(ctx context.Context) {
	if m == nil {
		return
	}
	m.SubmissionsMalformed.Add(ctx, 1)
}

// Decided records a decision written to its submitter.
func (m *Metrics) Decided(ctx context.Context, status string, queued time.Time) {
	if m == nil {
		return
	}
	m.DecisionsSent.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.QueuePending.Add(ctx, -1)
	m.DecisionLatency.Record(ctx, time.Since(queued).Seconds())
}

// Abandoned records a request that will never be answered.
func (m *Metrics) Abandoned(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.RequestsAbandoned.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.QueuePending.Add(ctx, -1)
}
