package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
)

// Metrics holds the instruments recorded by the HTTP layer and the task engine.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TasksCreated        metric.Int64Counter
	TasksCompleted      metric.Int64Counter
	OccurrencesSpawned  metric.Int64Counter
	RemindersDispatched metric.Int64Counter
}

// InitMeterProvider installs a global meter provider exporting every 10 seconds.
func InitMeterProvider(ctx context.Context, conn *grpc.ClientConn, serviceName, environment string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.RequestCounter, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.TasksCreated, "tasks_created_total", "Tasks created by users"},
		{&m.TasksCompleted, "tasks_completed_total", "Pending to completed transitions"},
		{&m.OccurrencesSpawned, "occurrences_spawned_total", "Recurring occurrences generated on completion"},
		{&m.RemindersDispatched, "reminders_dispatched_total", "Reminders delivered to notifiers"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{task}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	return m, nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(""))
	return m
}
