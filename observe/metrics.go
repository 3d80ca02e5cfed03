// Package observe provides the OpenTelemetry metric instruments of finagent:
// tool executions, model requests and dispatch loop outcomes.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider] to avoid
// cross-test pollution; [DefaultMetrics] uses the global provider.
package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skosovsky/finagent"
)

// meterName is the instrumentation scope name used for all finagent metrics.
const meterName = "github.com/skosovsky/finagent"

// Tool call statuses.
const (
	StatusOK          = "ok"
	StatusNotFound    = "not_found"
	StatusInvalid     = "invalid_arguments"
	StatusTimeout     = "timeout"
	StatusFailed      = "failed"
	StatusUnavailable = "unavailable"
)

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// ToolCalls counts tool executions. Attributes: tool, status.
	ToolCalls metric.Int64Counter

	// ToolDuration tracks tool execution latency. Attributes: tool.
	ToolDuration metric.Float64Histogram

	// ModelRequests counts model completions. Attributes: status.
	ModelRequests metric.Int64Counter

	// ModelDuration tracks model completion latency.
	ModelDuration metric.Float64Histogram

	// AgentRuns counts finished dispatch loops. Attributes: outcome.
	AgentRuns metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds; remote data and model calls
// range from tens of milliseconds to a couple of minutes.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ToolCalls, err = m.Int64Counter("finagent.tool.calls",
		metric.WithDescription("Total tool executions by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("finagent.tool.duration",
		metric.WithDescription("Latency of tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelRequests, err = m.Int64Counter("finagent.model.requests",
		metric.WithDescription("Total model completion requests by status."),
	); err != nil {
		return nil, err
	}
	if met.ModelDuration, err = m.Float64Histogram("finagent.model.duration",
		metric.WithDescription("Latency of model completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AgentRuns, err = m.Int64Counter("finagent.agent.runs",
		metric.WithDescription("Total dispatch loop runs by outcome."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built from otel.GetMeterProvider.
// Panics if instrument creation fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordToolCall records one tool execution.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
	m.ToolDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordModelRequest records one model completion.
func (m *Metrics) RecordModelRequest(ctx context.Context, status string, d time.Duration) {
	m.ModelRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.ModelDuration.Record(ctx, d.Seconds())
}

// RecordRun records the outcome of one dispatch loop.
func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	m.AgentRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ToolHook returns a function for finagent.WithOnAfterExecute that records every execution.
func (m *Metrics) ToolHook() func(context.Context, finagent.ToolCall, finagent.ToolResult, time.Duration) {
	return func(ctx context.Context, call finagent.ToolCall, res finagent.ToolResult, d time.Duration) {
		m.RecordToolCall(ctx, call.ToolName, ToolStatus(res.Error), d)
	}
}

// ToolStatus classifies a tool execution error.
func ToolStatus(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, finagent.ErrToolNotFound):
		return StatusNotFound
	case errors.Is(err, finagent.ErrTimeout):
		return StatusTimeout
	case finagent.IsClientError(err):
		return StatusInvalid
	case errors.Is(err, finagent.ErrShutdown):
		return StatusUnavailable
	default:
		return StatusFailed
	}
}
