package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("method", "estimated"),
		attribute.String("pump_id", "456"),
		attribute.String("reason", "price_missing"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "pump_id" {
			t.Fatalf("expected pump_id to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordCalculation(ctx, "meter_readings")
	m.RecordPumpFailure(ctx, "unknown")
	m.RecordRollover(ctx, "detected")
	m.RecordEstimation(ctx)
	m.RecordDeviationOutlier(ctx)
	m.ObserveStationRun(ctx, "completed", time.Second)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "fuelrecon"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordCalculation(context.Background(), "estimated")
}
