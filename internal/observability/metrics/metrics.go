package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes reconciliation instruments.
type Metrics struct {
	calculations     metric.Int64Counter
	pumpFailures     metric.Int64Counter
	rollovers        metric.Int64Counter
	estimations      metric.Int64Counter
	deviationOutlier metric.Int64Counter
	runDuration      metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fuelrecon"
	}
	meter := provider.Meter(name)

	calculations, err := meter.Int64Counter("fuelrecon_calculations_total",
		metric.WithDescription("Pump-day calculations persisted, by method."))
	if err != nil {
		return nil, err
	}
	pumpFailures, err := meter.Int64Counter("fuelrecon_pump_failures_total",
		metric.WithDescription("Pump-day calculations that failed inside a station run."))
	if err != nil {
		return nil, err
	}
	rollovers, err := meter.Int64Counter("fuelrecon_rollovers_total",
		metric.WithDescription("Meter wraparounds detected or confirmed."))
	if err != nil {
		return nil, err
	}
	estimations, err := meter.Int64Counter("fuelrecon_estimations_total",
		metric.WithDescription("Pump-days reconciled from estimated readings."))
	if err != nil {
		return nil, err
	}
	deviationOutlier, err := meter.Int64Counter("fuelrecon_deviation_outliers_total",
		metric.WithDescription("Pump-days whose deviation reached the configured threshold."))
	if err != nil {
		return nil, err
	}
	runDuration, err := meter.Float64Histogram("fuelrecon_station_run_duration_seconds",
		metric.WithDescription("Wall time of one station-date reconciliation run."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		calculations:     calculations,
		pumpFailures:     pumpFailures,
		rollovers:        rollovers,
		estimations:      estimations,
		deviationOutlier: deviationOutlier,
		runDuration:      runDuration,
	}, nil
}

// RecordCalculation counts one persisted pump-day calculation.
func (m *Metrics) RecordCalculation(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.calculations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPumpFailure counts one failed pump inside a station run.
func (m *Metrics) RecordPumpFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.pumpFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRollover counts a wraparound; source is "detected" or "confirmed".
func (m *Metrics) RecordRollover(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.rollovers.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordEstimation(ctx context.Context) {
	if m == nil {
		return
	}
	m.estimations.Add(ctx, 1)
}

func (m *Metrics) RecordDeviationOutlier(ctx context.Context) {
	if m == nil {
		return
	}
	m.deviationOutlier.Add(ctx, 1)
}

// ObserveStationRun records run duration; outcome is "completed", "partial" or "cancelled".
func (m *Metrics) ObserveStationRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"method":      {},
	"reason":      {},
	"source":      {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
