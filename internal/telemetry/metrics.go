package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/certifychain"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session lifecycle metrics
	LoginsTotal             metric.Int64Counter
	LogoutsTotal            metric.Int64Counter
	RemoteLogoutErrorsTotal metric.Int64Counter
	HydrationsTotal         metric.Int64Counter

	// Profile refresh metrics
	ProfileRefreshTotal       metric.Int64Counter
	ProfileRefreshErrorsTotal metric.Int64Counter
	StaleResultsTotal         metric.Int64Counter

	// Persistence metrics
	PersistErrorsTotal metric.Int64Counter

	// API client metrics
	APIRequestsTotal   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginsTotal, _ = meter.Int64Counter(
		"certifychain.session.logins.total",
		metric.WithDescription("Total number of sessions established"),
		metric.WithUnit("{session}"),
	)

	m.LogoutsTotal, _ = meter.Int64Counter(
		"certifychain.session.logouts.total",
		metric.WithDescription("Total number of sessions cleared by logout"),
		metric.WithUnit("{session}"),
	)

	m.RemoteLogoutErrorsTotal, _ = meter.Int64Counter(
		"certifychain.session.remote_logout.errors.total",
		metric.WithDescription("Total number of failed remote credential invalidations"),
		metric.WithUnit("{error}"),
	)

	m.HydrationsTotal, _ = meter.Int64Counter(
		"certifychain.session.hydrations.total",
		metric.WithDescription("Total number of session hydrations by outcome"),
		metric.WithUnit("{hydration}"),
	)

	m.ProfileRefreshTotal, _ = meter.Int64Counter(
		"certifychain.profile.refresh.total",
		metric.WithDescription("Total number of successful profile refreshes"),
		metric.WithUnit("{refresh}"),
	)

	m.ProfileRefreshErrorsTotal, _ = meter.Int64Counter(
		"certifychain.profile.refresh.errors.total",
		metric.WithDescription("Total number of failed profile refreshes"),
		metric.WithUnit("{error}"),
	)

	m.StaleResultsTotal, _ = meter.Int64Counter(
		"certifychain.session.stale_results.total",
		metric.WithDescription("Total number of results discarded because the session changed"),
		metric.WithUnit("{result}"),
	)

	m.PersistErrorsTotal, _ = meter.Int64Counter(
		"certifychain.persist.errors.total",
		metric.WithDescription("Total number of failed session storage operations"),
		metric.WithUnit("{error}"),
	)

	m.APIRequestsTotal, _ = meter.Int64Counter(
		"certifychain.api.requests.total",
		metric.WithDescription("Total number of API requests by method and status"),
		metric.WithUnit("{request}"),
	)

	m.APIRequestDuration, _ = meter.Float64Histogram(
		"certifychain.api.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("ms"),
	)

	return m
}

func (m *Metrics) RecordLogin(ctx context.Context) {
	m.LoginsTotal.Add(ctx, 1)
}

func (m *Metrics) RecordLogout(ctx context.Context) {
	m.LogoutsTotal.Add(ctx, 1)
}

func (m *Metrics) RecordRemoteLogoutError(ctx context.Context) {
	m.RemoteLogoutErrorsTotal.Add(ctx, 1)
}

// RecordHydration counts a hydration with its outcome
// (empty, restored, confirmed, rejected, superseded).
func (m *Metrics) RecordHydration(ctx context.Context, outcome string) {
	m.HydrationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordRefresh(ctx context.Context, ok bool) {
	if ok {
		m.ProfileRefreshTotal.Add(ctx, 1)
		return
	}
	m.ProfileRefreshErrorsTotal.Add(ctx, 1)
}

func (m *Metrics) RecordStaleResult(ctx context.Context, operation string) {
	m.StaleResultsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) RecordPersistError(ctx context.Context, key string) {
	m.PersistErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordAPIRequest(ctx context.Context, method string, status int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m.APIRequestsTotal.Add(ctx, 1, attrs)
	m.APIRequestDuration.Record(ctx, durationMs, attrs)
}
