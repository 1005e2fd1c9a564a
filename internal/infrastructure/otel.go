package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ServiceName    = "idme-license-server"
	ServiceVersion = "1.0.0"
	MeterName      = "idmeapi"
)

// OTelProviders holds the OpenTelemetry providers and the Prometheus
// scrape handler.
type OTelProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeOTel sets up the metric pipeline: an OTel meter provider backed
// by the Prometheus exporter, exposed on /metrics.
func InitializeOTel(logger *slog.Logger) (*OTelProviders, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics initialized",
		slog.String("exporter", "prometheus"),
		slog.String("meter", MeterName))

	return &OTelProviders{
		MeterProvider:  mp,
		Meter:          mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion)),
		PrometheusHTTP: promhttp.Handler(),
	}, nil
}

// Shutdown flushes and stops the metric pipeline.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}

// LicenseMetrics holds the counters recorded by the license service.
type LicenseMetrics struct {
	Validations     metric.Int64Counter
	LicensesIssued  metric.Int64Counter
	DevicesReleased metric.Int64Counter
	RemindersSent   metric.Int64Counter
}

// NewLicenseMetrics creates the license counters on the given meter.
func NewLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	validations, err := meter.Int64Counter("license_validations_total",
		metric.WithDescription("License validation requests by outcome"))
	if err != nil {
		return nil, err
	}
	issued, err := meter.Int64Counter("licenses_issued_total",
		metric.WithDescription("Licenses issued from purchase submissions"))
	if err != nil {
		return nil, err
	}
	released, err := meter.Int64Counter("devices_released_total",
		metric.WithDescription("Device slots released by deactivation"))
	if err != nil {
		return nil, err
	}
	reminders, err := meter.Int64Counter("renewal_reminders_sent_total",
		metric.WithDescription("Expiry reminder emails sent by the sweeper"))
	if err != nil {
		return nil, err
	}
	return &LicenseMetrics{
		Validations:     validations,
		LicensesIssued:  issued,
		DevicesReleased: released,
		RemindersSent:   reminders,
	}, nil
}
